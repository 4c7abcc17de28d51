package filters

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dharmasatrya/fareengine/internal/models"
)

// Options describes what a result set contains, for building filter UIs.
type Options struct {
	AircraftTypes    []string `json:"aircraft_types"`
	Carriers         []string `json:"carriers"`
	LayoverAirports  []string `json:"layover_airports"`
	Alliances        []string `json:"alliances"`
	MinTravelMinutes int      `json:"min_travel_minutes"`
	MaxTravelMinutes int      `json:"max_travel_minutes"`
}

func AvailableOptions(offers []models.Offer) Options {
	return defaultPipeline.AvailableOptions(offers)
}

// AvailableOptions reports math.MaxInt and 0 as the travel time bounds of an
// empty result set.
func (p *Pipeline) AvailableOptions(offers []models.Offer) Options {
	catalog := p.Catalog()
	aircraft := map[string]bool{}
	carriers := map[string]bool{}
	layovers := map[string]bool{}
	alliances := map[Alliance]bool{}

	opts := Options{MinTravelMinutes: math.MaxInt, MaxTravelMinutes: 0}
	for _, o := range offers {
		for _, s := range o.Segments {
			if s.Aircraft != "" {
				aircraft[strings.ToUpper(s.Aircraft)] = true
			}
			carriers[strings.ToUpper(s.Carrier)] = true
		}
		for _, l := range o.Layovers() {
			layovers[l.Airport] = true
		}
		if a, ok := catalog.AllianceOf(primaryCarrier(o)); ok {
			alliances[a] = true
		}
		opts.MinTravelMinutes = min(opts.MinTravelMinutes, o.TotalDuration)
		opts.MaxTravelMinutes = max(opts.MaxTravelMinutes, o.TotalDuration)
	}

	opts.AircraftTypes = sortedKeys(aircraft)
	opts.Carriers = sortedKeys(carriers)
	opts.LayoverAirports = sortedKeys(layovers)
	opts.Alliances = sortedAlliances(alliances)
	return opts
}

type Recommendation struct {
	Filter string `json:"filter"`
	Reason string `json:"reason"`
}

// Thresholds for Recommend.
const (
	longLayoverMinutes = 240
	connectingShare    = 0.5
	redEyeShare        = 0.3
	awardShare         = 0.5
)

func Recommend(criteria models.SearchCriteria, offers []models.Offer) []Recommendation {
	return defaultPipeline.Recommend(criteria, offers)
}

// Recommend inspects an unfiltered result set and proposes filters worth
// enabling. It never filters anything itself.
func (p *Pipeline) Recommend(criteria models.SearchCriteria, offers []models.Offer) []Recommendation {
	if len(offers) == 0 {
		return nil
	}
	catalog := p.Catalog()
	redEye := mustWindow(DefaultRedEyeWindow)
	total := float64(len(offers))

	var (
		direct, redEyes, award, lieFlat int
		longestLayover                  int
		alliances                       = map[Alliance]bool{}
	)
	for _, o := range offers {
		if o.IsDirect() {
			direct++
		}
		if redEye.contains(localDeparture(o)) {
			redEyes++
		}
		if o.HasAwardSpace() {
			award++
		}
		if allSegmentsHave(catalog, o, CapLieFlat) {
			lieFlat++
		}
		for _, l := range o.Layovers() {
			longestLayover = max(longestLayover, l.Minutes)
		}
		if a, ok := catalog.AllianceOf(primaryCarrier(o)); ok {
			alliances[a] = true
		}
	}

	var recs []Recommendation
	connecting := len(offers) - direct
	if direct > 0 && float64(connecting)/total > connectingShare {
		recs = append(recs, Recommendation{
			Filter: NameDirectOnly,
			Reason: fmt.Sprintf("%d of %d offers connect; %d fly nonstop", connecting, len(offers), direct),
		})
	}
	if redEyes < len(offers) && float64(redEyes)/total >= redEyeShare {
		recs = append(recs, Recommendation{
			Filter: NameAvoidRedEye,
			Reason: fmt.Sprintf("%d offers depart overnight", redEyes),
		})
	}
	if longestLayover > longLayoverMinutes {
		recs = append(recs, Recommendation{
			Filter: NameLayoverDuration,
			Reason: fmt.Sprintf("Some layovers last %s; cap them at %s", formatMinutes(longestLayover), formatMinutes(longLayoverMinutes)),
		})
	}
	if len(alliances) > 1 {
		recs = append(recs, Recommendation{
			Filter: NameAlliance,
			Reason: fmt.Sprintf("Offers span %s; filter by the alliance you earn with", strings.Join(sortedAlliances(alliances), ", ")),
		})
	}
	if criteria.CabinClass.Premium() && lieFlat > 0 && lieFlat < len(offers) {
		recs = append(recs, Recommendation{
			Filter: NameLieFlat,
			Reason: fmt.Sprintf("Only %d of %d offers have lie-flat seats on every segment", lieFlat, len(offers)),
		})
	}
	if float64(award)/total > awardShare {
		recs = append(recs, Recommendation{
			Filter: NameAwardOnly,
			Reason: fmt.Sprintf("%d offers can be booked with points", award),
		})
	}
	return recs
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedAlliances(set map[Alliance]bool) []string {
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, string(a))
	}
	sort.Strings(out)
	return out
}
