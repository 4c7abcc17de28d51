package optimizer

import (
	"fmt"
	"strings"

	"github.com/dharmasatrya/fareengine/internal/airports"
	"github.com/dharmasatrya/fareengine/internal/models"
)

// stopover joins origin→X and X→destination offers whose gap at X falls in
// the allowed stopover range.
func stopover(c models.SearchCriteria, offers []models.Offer, opts Options) (candidate, bool) {
	firsts := map[string][]models.Offer{}
	for _, off := range offers {
		if len(off.Segments) == 0 || !strings.EqualFold(off.Origin(), c.Origin) {
			continue
		}
		via := strings.ToUpper(off.Destination())
		if via == c.Destination {
			continue
		}
		firsts[via] = append(firsts[via], off)
	}

	var (
		best  candidate
		found bool
	)
	for via, legs := range firsts {
		seconds := servingSorted(offers, via, c.Destination)
		for _, first := range legs {
			for _, second := range seconds {
				gap := second.DepartureTime().Sub(first.ArrivalTime())
				if gap < opts.MinStopover || gap > opts.MaxStopover {
					continue
				}
				cost := first.Pricing.TotalPrice + second.Pricing.TotalPrice
				if !found || cost < best.cost {
					best = candidate{
						routeType: RouteStopover,
						offers:    []models.Offer{first, second},
						cost:      cost,
						minutes:   first.TotalDuration + second.TotalDuration,
						note:      fmt.Sprintf("Stop over in %s for %.0f hours", via, gap.Hours()),
					}
					found = true
				}
			}
		}
	}
	return best, found
}

// openJaw keeps the outbound and looks for a cheaper return that leaves from
// an airport near the destination or lands at one near the origin.
func openJaw(c models.SearchCriteria, offers []models.Offer, baseline candidate, opts Options) (candidate, bool) {
	outbound := baseline.offers[0]

	returnFrom := nearbyCodes(c.Destination, opts.MaxDetourMiles)
	returnTo := nearbyCodes(c.Origin, opts.MaxDetourMiles)

	var (
		best  candidate
		found bool
	)
	for _, off := range offers {
		if len(off.Segments) == 0 {
			continue
		}
		from := strings.ToUpper(off.Origin())
		to := strings.ToUpper(off.Destination())
		if !returnFrom[from] || !returnTo[to] {
			continue
		}
		if from == c.Destination && to == c.Origin {
			continue
		}
		if off.DepartureTime().Before(outbound.ArrivalTime()) {
			continue
		}
		cost := outbound.Pricing.TotalPrice + off.Pricing.TotalPrice
		if !found || cost < best.cost {
			best = candidate{
				routeType: RouteOpenJaw,
				offers:    []models.Offer{outbound, off},
				cost:      cost,
				minutes:   journeyMinutes(outbound) + journeyMinutes(off),
				note:      fmt.Sprintf("Return from %s to %s", from, to),
			}
			found = true
		}
	}
	return best, found
}

// nearbyCodes includes the airport itself.
func nearbyCodes(code string, maxMiles float64) map[string]bool {
	set := map[string]bool{strings.ToUpper(code): true}
	for _, a := range airports.Nearby(code, maxMiles) {
		set[a.Code] = true
	}
	return set
}
