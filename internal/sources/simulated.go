package sources

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/dharmasatrya/fareengine/internal/airports"
	"github.com/dharmasatrya/fareengine/internal/models"
)

// Profile describes the latency, reliability and inventory of a simulated
// upstream.
type Profile struct {
	Name          string
	Carriers      []string
	Aircraft      []string
	AwardPrograms []string
	MinLatency    time.Duration
	MaxLatency    time.Duration
	FailureRate   float64
	PriceFactor   float64
	Currency      string
	Capabilities  []Capability
}

var defaultAircraft = []string{"B789", "B77W", "A359", "A21N", "A320", "B738", "A333", "E175"}

var hubs = []string{"ORD", "ATL", "DFW", "LHR", "FRA", "AMS", "CDG", "DXB", "IST", "DOH"}

var cabinMultiplier = map[models.CabinClass]float64{
	models.CabinEconomy:        1.0,
	models.CabinPremiumEconomy: 1.7,
	models.CabinBusiness:       3.8,
	models.CabinFirst:          6.0,
}

// SimulatedSource produces deterministic offers for a route and date, with a
// random latency and failure profile per call.
type SimulatedSource struct {
	profile Profile

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulatedSource(p Profile) *SimulatedSource {
	if len(p.Aircraft) == 0 {
		p.Aircraft = defaultAircraft
	}
	if p.PriceFactor <= 0 {
		p.PriceFactor = 1
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if p.MaxLatency < p.MinLatency {
		p.MaxLatency = p.MinLatency
	}
	return &SimulatedSource{
		profile: p,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *SimulatedSource) Name() string {
	return s.profile.Name
}

func (s *SimulatedSource) Capabilities() []Capability {
	if len(s.profile.Capabilities) == 0 {
		return []Capability{CapOneWay, CapRoundTrip, CapAward}
	}
	return s.profile.Capabilities
}

func (s *SimulatedSource) Search(ctx context.Context, criteria models.SearchCriteria) ([]models.Offer, error) {
	delay, fail := s.roll()
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if fail {
		return nil, NewSourceError(s.Name(), ErrUnavailable)
	}

	c := criteria.Normalize()
	offers := s.generate(c.Origin, c.Destination, c.DepartureDate, c)
	if c.ReturnDate != nil {
		offers = append(offers, s.generate(c.Destination, c.Origin, *c.ReturnDate, c)...)
	}
	return offers, nil
}

func (s *SimulatedSource) roll() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delay := s.profile.MinLatency
	if spread := s.profile.MaxLatency - s.profile.MinLatency; spread > 0 {
		delay += time.Duration(s.rng.Int63n(int64(spread)))
	}
	return delay, s.rng.Float64() < s.profile.FailureRate
}

func (s *SimulatedSource) generate(origin, destination string, day time.Time, c models.SearchCriteria) []models.Offer {
	if len(s.profile.Carriers) == 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(seed(s.Name(), origin, destination, day.Format(models.DateLayout), string(c.CabinClass))))
	count := 4 + rng.Intn(4)
	loc := airports.Location(origin)

	offers := make([]models.Offer, 0, count)
	for i := 0; i < count; i++ {
		carrier := s.profile.Carriers[rng.Intn(len(s.profile.Carriers))]
		stops := rng.Intn(3)
		route := []string{origin}
		for len(route) < stops+1 {
			hub := hubs[rng.Intn(len(hubs))]
			if hub != origin && hub != destination && hub != route[len(route)-1] {
				route = append(route, hub)
			}
		}
		route = append(route, destination)

		depart := time.Date(day.Year(), day.Month(), day.Day(), rng.Intn(24), 5*rng.Intn(12), 0, 0, loc)
		segments := make([]models.RouteSegment, 0, len(route)-1)
		miles := 0.0
		for leg := 0; leg < len(route)-1; leg++ {
			from, to := route[leg], route[leg+1]
			d, ok := airports.DistanceMiles(from, to)
			if !ok {
				d = float64(300 + rng.Intn(2500))
			}
			miles += d
			minutes := int(d/500*60) + 30
			arrive := depart.Add(time.Duration(minutes) * time.Minute)
			segments = append(segments, models.RouteSegment{
				Carrier:         carrier,
				FlightNumber:    fmt.Sprintf("%s%d", carrier, 100+rng.Intn(900)),
				Origin:          from,
				Destination:     to,
				Departure:       depart,
				Arrival:         airports.InLocal(arrive, to),
				DurationMinutes: minutes,
				Aircraft:        s.profile.Aircraft[rng.Intn(len(s.profile.Aircraft))],
			})
			depart = airports.InLocal(arrive.Add(time.Duration(50+rng.Intn(240))*time.Minute), to)
		}

		base := (80 + miles*0.09) * cabinMultiplier[c.CabinClass] * s.profile.PriceFactor
		base *= 0.85 + rng.Float64()*0.4
		base -= float64(stops) * 0.06 * base
		pax := float64(c.Passengers.Adults) + 0.75*float64(c.Passengers.Children) + 0.1*float64(c.Passengers.Infants)
		cash := round2(base * pax)
		taxes := round2(cash * 0.12)
		fees := round2(25 * pax)

		pricing := models.NewPricing(cash, taxes, fees, s.profile.Currency)
		for _, program := range s.profile.AwardPrograms {
			if rng.Float64() < 0.4 {
				continue
			}
			points := int(math.Round(cash*(60+rng.Float64()*50)/500)) * 500
			pricing.PointsOptions = append(pricing.PointsOptions, models.PointsOption{
				ProgramID:      program,
				PointsRequired: points,
				CashCopay:      taxes,
			})
		}
		markBestValue(pricing.PointsOptions)

		offers = append(offers, models.Offer{
			ID:       fmt.Sprintf("%s-%s%s-%s-%d", s.Name(), origin, destination, day.Format("20060102"), i),
			Source:   s.Name(),
			Carrier:  carrier,
			Segments: segments,
			Pricing:  pricing,
			Availability: models.Availability{
				Seats:        1 + rng.Intn(9),
				BookingClass: bookingClass(c.CabinClass, rng),
			},
		}.WithDerivedFields())
	}
	return offers
}

// markBestValue flags the option needing the fewest points.
func markBestValue(options []models.PointsOption) {
	best := -1
	for i, o := range options {
		if best < 0 || o.PointsRequired < options[best].PointsRequired {
			best = i
		}
	}
	if best >= 0 {
		options[best].BestValue = true
	}
}

func bookingClass(cabin models.CabinClass, rng *rand.Rand) string {
	classes := map[models.CabinClass]string{
		models.CabinEconomy:        "YBMHKLQV",
		models.CabinPremiumEconomy: "WEP",
		models.CabinBusiness:       "JCDIZ",
		models.CabinFirst:          "FA",
	}
	letters := classes[cabin]
	if letters == "" {
		letters = classes[models.CabinEconomy]
	}
	return string(letters[rng.Intn(len(letters))])
}

func seed(parts ...string) int64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{'|'})
	}
	return int64(h.Sum64() & math.MaxInt64)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
