// Package optimizer looks for cheaper ways to assemble an itinerary from a
// search result: positioning flights, stopovers, open-jaw returns and
// multi-city chains.
package optimizer

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dharmasatrya/fareengine/internal/models"
)

type RouteType string

const (
	RouteDirect      RouteType = "direct"
	RoutePositioning RouteType = "positioning"
	RouteStopover    RouteType = "stopover"
	RouteOpenJaw     RouteType = "open-jaw"
	RouteMultiCity   RouteType = "multi-city"
)

const (
	DefaultMaxDetourMiles = 150.0
	DefaultMinConnection  = 60 * time.Minute
	DefaultMinStopover    = 12 * time.Hour
	DefaultMaxStopover    = 72 * time.Hour
)

type Options struct {
	ConsiderPositioning bool          `json:"consider_positioning"`
	AllowStopover       bool          `json:"allow_stopover"`
	AllowOpenJaw        bool          `json:"allow_open_jaw"`
	MaxDetourMiles      float64       `json:"max_detour_miles,omitempty"`
	MinConnection       time.Duration `json:"min_connection,omitempty"`
	MinStopover         time.Duration `json:"min_stopover,omitempty"`
	MaxStopover         time.Duration `json:"max_stopover,omitempty"`
}

func (o Options) withDefaults() Options {
	if o.MaxDetourMiles <= 0 {
		o.MaxDetourMiles = DefaultMaxDetourMiles
	}
	if o.MinConnection <= 0 {
		o.MinConnection = DefaultMinConnection
	}
	if o.MinStopover <= 0 {
		o.MinStopover = DefaultMinStopover
	}
	if o.MaxStopover <= 0 {
		o.MaxStopover = DefaultMaxStopover
	}
	return o
}

type Leg struct {
	From             string         `json:"from"`
	To               string         `json:"to"`
	OptimizedFlights []models.Offer `json:"optimized_flights"`
	Cost             float64        `json:"cost"`
}

// OptimizedRoute is the selection the optimizer settled on. An empty Offers
// list with a zero score means nothing usable was found.
type OptimizedRoute struct {
	RouteType         RouteType      `json:"route_type"`
	Offers            []models.Offer `json:"offers"`
	TotalCost         float64        `json:"total_cost"`
	TotalMinutes      int            `json:"total_minutes"`
	Savings           float64        `json:"savings"`
	OptimizationScore float64        `json:"optimization_score"`
	Recommendations   []string       `json:"recommendations"`
	Legs              []Leg          `json:"legs,omitempty"`
}

type Optimizer struct {
	logger zerolog.Logger
}

type Option func(*Optimizer)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *Optimizer) { o.logger = logger }
}

func New(opts ...Option) *Optimizer {
	o := &Optimizer{logger: log.With().Str("component", "optimizer").Logger()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// candidate is one complete way of making the trip.
type candidate struct {
	routeType RouteType
	offers    []models.Offer
	cost      float64
	minutes   int
	note      string
}

// OptimizeRoute starts from the cheapest offers serving the requested route
// (outbound plus return for round trips) and adopts an alternative only when
// it is strictly cheaper.
func (o *Optimizer) OptimizeRoute(criteria models.SearchCriteria, offers []models.Offer, opts Options) OptimizedRoute {
	opts = opts.withDefaults()
	c := criteria.Normalize()

	baseline, ok := o.baseline(c, offers)
	if !ok {
		return OptimizedRoute{
			RouteType:       RouteDirect,
			Offers:          []models.Offer{},
			Recommendations: []string{fmt.Sprintf("No offers serve %s to %s", c.Origin, c.Destination)},
		}
	}

	best := baseline
	var alternatives []candidate

	if opts.ConsiderPositioning {
		for _, s := range o.positioning(c, offers, opts) {
			if s.Feasible {
				alternatives = append(alternatives, candidate{
					routeType: RoutePositioning,
					offers:    []models.Offer{s.PositioningOffer, s.MainOffer},
					cost:      s.TotalCost,
					minutes:   journeyMinutes(s.PositioningOffer, s.MainOffer),
					note:      fmt.Sprintf("Position to %s first (%.0f miles)", s.AlternateAirport, s.DetourMiles),
				})
			}
		}
	}
	if opts.AllowStopover {
		if s, ok := stopover(c, offers, opts); ok {
			alternatives = append(alternatives, s)
		}
	}
	if opts.AllowOpenJaw && c.IsRoundTrip() {
		if j, ok := openJaw(c, offers, baseline, opts); ok {
			alternatives = append(alternatives, j)
		}
	}

	for _, alt := range alternatives {
		if alt.routeType != RouteOpenJaw && c.IsRoundTrip() {
			var ok bool
			if alt, ok = withReturn(c, offers, alt); !ok {
				continue
			}
		}
		if alt.cost < best.cost {
			best = alt
		}
	}

	savings := round2(baseline.cost - best.cost)
	route := OptimizedRoute{
		RouteType:         best.routeType,
		Offers:            models.CloneOffers(best.offers),
		TotalCost:         round2(best.cost),
		TotalMinutes:      best.minutes,
		Savings:           savings,
		OptimizationScore: Score(savings, baseline.cost, baseline.minutes, best.minutes),
	}
	route.Recommendations = recommendations(best, baseline, savings)

	o.logger.Debug().
		Str("route_type", string(route.RouteType)).
		Float64("savings", route.Savings).
		Int("alternatives", len(alternatives)).
		Msg("route optimized")
	return route
}

// baseline is the cheapest offer for each direction of the request.
func (o *Optimizer) baseline(c models.SearchCriteria, offers []models.Offer) (candidate, bool) {
	out, ok := cheapest(offers, c.Origin, c.Destination)
	if !ok {
		return candidate{}, false
	}
	if !c.IsRoundTrip() {
		return candidate{
			routeType: RouteDirect,
			offers:    []models.Offer{out},
			cost:      out.Pricing.TotalPrice,
			minutes:   journeyMinutes(out),
		}, true
	}

	var back models.Offer
	found := false
	for _, r := range servingSorted(offers, c.Destination, c.Origin) {
		if !r.DepartureTime().Before(out.ArrivalTime()) {
			back, found = r, true
			break
		}
	}
	if !found {
		return candidate{}, false
	}
	return candidate{
		routeType: RouteDirect,
		offers:    []models.Offer{out, back},
		cost:      out.Pricing.TotalPrice + back.Pricing.TotalPrice,
		minutes:   journeyMinutes(out) + journeyMinutes(back),
	}, true
}

// withReturn completes a one-way alternative with the cheapest return that
// leaves after it lands, so it can be compared against a round-trip
// baseline.
func withReturn(c models.SearchCriteria, offers []models.Offer, alt candidate) (candidate, bool) {
	arrival := alt.offers[len(alt.offers)-1].ArrivalTime()
	for _, r := range servingSorted(offers, c.Destination, c.Origin) {
		if r.DepartureTime().Before(arrival) {
			continue
		}
		alt.offers = append(models.CloneOffers(alt.offers), r)
		alt.cost += r.Pricing.TotalPrice
		alt.minutes += journeyMinutes(r)
		return alt, true
	}
	return candidate{}, false
}

func recommendations(best, baseline candidate, savings float64) []string {
	if best.routeType == RouteDirect {
		return []string{"The cheapest itinerary on the requested route is already the best option"}
	}
	recs := []string{
		fmt.Sprintf("%s to save %.2f", best.note, savings),
	}
	if best.minutes > baseline.minutes {
		extra := time.Duration(best.minutes-baseline.minutes) * time.Minute
		recs = append(recs, fmt.Sprintf("Adds %s of travel time", extra.Round(time.Minute)))
	}
	return recs
}

func cheapest(offers []models.Offer, from, to string) (models.Offer, bool) {
	list := servingSorted(offers, from, to)
	if len(list) == 0 {
		return models.Offer{}, false
	}
	return list[0], true
}

// servingSorted returns offers flying from → to, cheapest first.
func servingSorted(offers []models.Offer, from, to string) []models.Offer {
	var out []models.Offer
	for _, o := range offers {
		if len(o.Segments) > 0 && o.Serves(from, to) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pricing.TotalPrice != out[j].Pricing.TotalPrice {
			return out[i].Pricing.TotalPrice < out[j].Pricing.TotalPrice
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// journeyMinutes is the door-to-door time of consecutive offers, waits
// between them included.
func journeyMinutes(chain ...models.Offer) int {
	if len(chain) == 0 {
		return 0
	}
	return int(chain[len(chain)-1].ArrivalTime().Sub(chain[0].DepartureTime()).Minutes())
}
