package optimizer

import (
	"sort"
	"strings"

	"github.com/dharmasatrya/fareengine/internal/airports"
	"github.com/dharmasatrya/fareengine/internal/models"
)

// PositioningSuggestion pairs a flight to an alternate airport with a main
// flight from there to the destination.
type PositioningSuggestion struct {
	AlternateAirport  string       `json:"alternate_airport"`
	PositioningOffer  models.Offer `json:"positioning_offer"`
	MainOffer         models.Offer `json:"main_offer"`
	TotalCost         float64      `json:"total_cost"`
	OriginalBestPrice float64      `json:"original_best_price"`
	Savings           float64      `json:"savings"`
	DetourMiles       float64      `json:"detour_miles"`
	Feasible          bool         `json:"feasible"`
}

// FindPositioningFlights returns the cheapest valid pair per alternate
// airport, cheapest first. Infeasible pairs are kept so callers can show
// why an alternate does not pay off.
func (o *Optimizer) FindPositioningFlights(criteria models.SearchCriteria, offers []models.Offer, maxDetourMiles float64) []PositioningSuggestion {
	return o.positioning(criteria.Normalize(), offers, Options{MaxDetourMiles: maxDetourMiles}.withDefaults())
}

func (o *Optimizer) positioning(c models.SearchCriteria, offers []models.Offer, opts Options) []PositioningSuggestion {
	direct, hasBaseline := cheapest(offers, c.Origin, c.Destination)

	// Main offers from any other airport into the destination.
	mains := map[string][]models.Offer{}
	for _, off := range offers {
		if len(off.Segments) == 0 || !strings.EqualFold(off.Destination(), c.Destination) {
			continue
		}
		from := strings.ToUpper(off.Origin())
		if from == c.Origin {
			continue
		}
		mains[from] = append(mains[from], off)
	}

	var out []PositioningSuggestion
	for alt, candidates := range mains {
		feeders := servingSorted(offers, c.Origin, alt)
		if len(feeders) == 0 {
			continue
		}

		var (
			best  PositioningSuggestion
			found bool
		)
		for _, feeder := range feeders {
			earliest := feeder.ArrivalTime().Add(opts.MinConnection)
			for _, main := range candidates {
				if main.DepartureTime().Before(earliest) {
					continue
				}
				total := feeder.Pricing.TotalPrice + main.Pricing.TotalPrice
				if !found || total < best.TotalCost {
					best = PositioningSuggestion{
						AlternateAirport: alt,
						PositioningOffer: feeder,
						MainOffer:        main,
						TotalCost:        total,
					}
					found = true
				}
			}
		}
		if !found {
			continue
		}

		detour, known := airports.DistanceMiles(c.Origin, alt)
		best.DetourMiles = round2(detour)
		best.TotalCost = round2(best.TotalCost)
		if hasBaseline {
			best.OriginalBestPrice = direct.Pricing.TotalPrice
			best.Savings = round2(direct.Pricing.TotalPrice - best.TotalCost)
			best.Feasible = known && detour <= opts.MaxDetourMiles && best.TotalCost < direct.Pricing.TotalPrice
		}
		out = append(out, best)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalCost != out[j].TotalCost {
			return out[i].TotalCost < out[j].TotalCost
		}
		return out[i].AlternateAirport < out[j].AlternateAirport
	})

	o.logger.Debug().
		Str("origin", c.Origin).
		Str("destination", c.Destination).
		Int("suggestions", len(out)).
		Msg("positioning flights evaluated")
	return out
}
