package sources

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dharmasatrya/fareengine/internal/airports"
	"github.com/dharmasatrya/fareengine/internal/models"
	"github.com/dharmasatrya/fareengine/internal/sources/data"
)

type feedResponse struct {
	Feed  string     `json:"feed"`
	Fares []feedFare `json:"fares"`
}

type feedFare struct {
	FareID            string      `json:"fare_id"`
	ValidatingCarrier string      `json:"validating_carrier"`
	Cabin             string      `json:"cabin"`
	Legs              []feedLeg   `json:"legs"`
	BaseFare          float64     `json:"base_fare"`
	Taxes             float64     `json:"taxes"`
	Fees              float64     `json:"fees"`
	Currency          string      `json:"currency"`
	Seats             int         `json:"seats"`
	FareClass         string      `json:"fare_class"`
	Award             []feedAward `json:"award,omitempty"`
}

type feedLeg struct {
	Carrier   string `json:"carrier"`
	Flight    string `json:"flight"`
	From      string `json:"from"`
	To        string `json:"to"`
	Depart    string `json:"depart"`
	Arrive    string `json:"arrive"`
	Equipment string `json:"equipment"`
}

type feedAward struct {
	Program string  `json:"program"`
	Points  int     `json:"points"`
	Copay   float64 `json:"copay"`
}

// FixtureSource serves a static fare feed. Feed timestamps are local to the
// airport they refer to.
type FixtureSource struct {
	name  string
	fares []feedFare
}

func NewFixtureSource(name string) (*FixtureSource, error) {
	return NewFixtureSourceFromJSON(name, data.FareFeed)
}

func NewFixtureSourceFromJSON(name string, raw []byte) (*FixtureSource, error) {
	var resp feedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &FixtureSource{name: name, fares: resp.Fares}, nil
}

func (p *FixtureSource) Name() string {
	return p.name
}

func (p *FixtureSource) Search(ctx context.Context, criteria models.SearchCriteria) ([]models.Offer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := criteria.Normalize()
	results := p.match(c.Origin, c.Destination, c.DepartureDate.Format(models.DateLayout), c)
	if c.ReturnDate != nil {
		results = append(results, p.match(c.Destination, c.Origin, c.ReturnDate.Format(models.DateLayout), c)...)
	}
	return results, nil
}

func (p *FixtureSource) match(origin, destination, day string, c models.SearchCriteria) []models.Offer {
	var results []models.Offer
	for _, f := range p.fares {
		if len(f.Legs) == 0 {
			continue
		}
		first, last := f.Legs[0], f.Legs[len(f.Legs)-1]
		if !strings.EqualFold(first.From, origin) || !strings.EqualFold(last.To, destination) {
			continue
		}
		if !strings.EqualFold(f.Cabin, string(c.CabinClass)) {
			continue
		}
		if !strings.HasPrefix(first.Depart, day) {
			continue
		}

		offer, err := p.normalize(f, c.Passengers)
		if err != nil {
			continue
		}
		results = append(results, offer)
	}
	return results
}

func (p *FixtureSource) normalize(f feedFare, pax models.Passengers) (models.Offer, error) {
	segments := make([]models.RouteSegment, len(f.Legs))
	for i, l := range f.Legs {
		dep, err := airports.ParseTimeWithOffset(l.Depart, l.From)
		if err != nil {
			return models.Offer{}, err
		}
		arr, err := airports.ParseTimeWithOffset(l.Arrive, l.To)
		if err != nil {
			return models.Offer{}, err
		}
		segments[i] = models.RouteSegment{
			Carrier:         l.Carrier,
			FlightNumber:    l.Flight,
			Origin:          strings.ToUpper(l.From),
			Destination:     strings.ToUpper(l.To),
			Departure:       dep,
			Arrival:         arr,
			DurationMinutes: int(arr.Sub(dep).Minutes()),
			Aircraft:        l.Equipment,
		}
	}

	paying := float64(pax.Adults + pax.Children)
	if paying <= 0 {
		paying = 1
	}
	pricing := models.NewPricing(
		round2(f.BaseFare*paying),
		round2(f.Taxes*paying),
		round2(f.Fees*paying),
		f.Currency,
	)
	for _, a := range f.Award {
		pricing.PointsOptions = append(pricing.PointsOptions, models.PointsOption{
			ProgramID:      a.Program,
			PointsRequired: int(float64(a.Points) * paying),
			CashCopay:      round2(a.Copay * paying),
		})
	}
	markBestValue(pricing.PointsOptions)

	return models.Offer{
		ID:       p.name + "-" + f.FareID,
		Source:   p.name,
		Carrier:  f.ValidatingCarrier,
		Segments: segments,
		Pricing:  pricing,
		Availability: models.Availability{
			Seats:        f.Seats,
			BookingClass: f.FareClass,
		},
	}.WithDerivedFields(), nil
}
