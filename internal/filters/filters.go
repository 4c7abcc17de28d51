// Package filters narrows an offer list with independent predicates and
// explains what each predicate removed.
package filters

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dharmasatrya/fareengine/internal/airports"
	"github.com/dharmasatrya/fareengine/internal/models"
)

// fewResultsThreshold triggers the soft warning when fewer offers remain.
const fewResultsThreshold = 3

type LayoverMode string

const (
	// LayoverEach bounds every layover on its own.
	LayoverEach LayoverMode = "each"
	// LayoverTotal bounds the summed layover time.
	LayoverTotal LayoverMode = "total"
)

// TimeWindow is an HH:MM range. A window whose end is before its start
// wraps past midnight. The end is exclusive.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

var (
	DefaultRedEyeWindow  = TimeWindow{Start: "22:00", End: "06:00"}
	DefaultDaytimeWindow = TimeWindow{Start: "06:00", End: "22:00"}
)

type FilterSet struct {
	PriceMin *float64 `json:"price_min,omitempty"`
	PriceMax *float64 `json:"price_max,omitempty"`
	Carriers []string `json:"carriers,omitempty"`

	IncludeAircraft []string   `json:"include_aircraft,omitempty"`
	ExcludeAircraft []string   `json:"exclude_aircraft,omitempty"`
	Alliances       []Alliance `json:"alliances,omitempty"`

	DepartureWindow *TimeWindow `json:"departure_window,omitempty"`
	ArrivalWindow   *TimeWindow `json:"arrival_window,omitempty"`

	MaxTravelMinutes         *int        `json:"max_travel_minutes,omitempty"`
	MinLayoverMinutes        *int        `json:"min_layover_minutes,omitempty"`
	MaxLayoverMinutes        *int        `json:"max_layover_minutes,omitempty"`
	LayoverMode              LayoverMode `json:"layover_mode,omitempty"`
	PreferredLayoverAirports []string    `json:"preferred_layover_airports,omitempty"`
	AvoidLayoverAirports     []string    `json:"avoid_layover_airports,omitempty"`
	MaxSegments              *int        `json:"max_segments,omitempty"`
	DirectOnly               bool        `json:"direct_only,omitempty"`

	AvoidRedEye   bool        `json:"avoid_red_eye,omitempty"`
	RedEyeWindow  *TimeWindow `json:"red_eye_window,omitempty"`
	PreferDaytime bool        `json:"prefer_daytime,omitempty"`

	RequireWiFi          bool `json:"require_wifi,omitempty"`
	RequireLieFlat       bool `json:"require_lie_flat,omitempty"`
	RequireFuelEfficient bool `json:"require_fuel_efficient,omitempty"`

	AwardOnly bool `json:"award_only,omitempty"`
}

type FilterResult struct {
	OriginalCount  int            `json:"original_count"`
	FilteredCount  int            `json:"filtered_count"`
	AppliedFilters []string       `json:"applied_filters"`
	RemovedBy      map[string]int `json:"removed_by"`
	Warnings       []string       `json:"warnings,omitempty"`
	Suggestions    []string       `json:"suggestions,omitempty"`
}

// Filter names reported in FilterResult.AppliedFilters.
const (
	NamePriceRange       = "Price range"
	NameCarriers         = "Carriers"
	NameIncludeAircraft  = "Aircraft types"
	NameExcludeAircraft  = "Excluded aircraft"
	NameAlliance         = "Alliance"
	NameDepartureWindow  = "Departure time"
	NameArrivalWindow    = "Arrival time"
	NameMaxTravelTime    = "Maximum travel time"
	NameLayoverDuration  = "Layover duration"
	NamePreferredLayover = "Preferred layover airports"
	NameAvoidLayover     = "Avoided layover airports"
	NameMaxSegments      = "Maximum segments"
	NameDirectOnly       = "Direct flights only"
	NameAvoidRedEye      = "Avoid red-eye flights"
	NamePreferDaytime    = "Daytime flights"
	NameWiFi             = "WiFi"
	NameLieFlat          = "Lie-flat seats"
	NameFuelEfficient    = "Fuel-efficient aircraft"
	NameAwardOnly        = "Award availability only"
)

type predicate struct {
	name  string
	keep  func(models.Offer) bool
	relax func(removed []models.Offer) string
}

// Pipeline applies filter sets against a capability catalog that can be
// swapped while searches are running.
type Pipeline struct {
	catalog atomic.Pointer[Catalog]
}

func NewPipeline(catalog *Catalog) *Pipeline {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	p := &Pipeline{}
	p.catalog.Store(catalog)
	return p
}

func (p *Pipeline) Catalog() *Catalog {
	return p.catalog.Load()
}

func (p *Pipeline) SetCatalog(catalog *Catalog) {
	if catalog != nil {
		p.catalog.Store(catalog)
	}
}

var defaultPipeline = NewPipeline(nil)

// Apply runs the set through a pipeline backed by the embedded catalog.
func Apply(offers []models.Offer, set *FilterSet) ([]models.Offer, FilterResult) {
	return defaultPipeline.Apply(offers, set)
}

// Apply evaluates every enabled filter against the full input so each
// removal count stands on its own. The kept offers are those every filter
// accepted, in input order.
func (p *Pipeline) Apply(offers []models.Offer, set *FilterSet) ([]models.Offer, FilterResult) {
	result := FilterResult{
		OriginalCount:  len(offers),
		AppliedFilters: []string{},
		RemovedBy:      map[string]int{},
	}
	if set == nil {
		result.FilteredCount = len(offers)
		return append([]models.Offer(nil), offers...), result
	}

	preds, warnings := p.predicates(set)
	result.Warnings = append(result.Warnings, warnings...)

	rejected := make([]bool, len(offers))
	var soleRemover *predicate
	soleCount := 0
	for i := range preds {
		pr := &preds[i]
		removed := 0
		for j, o := range offers {
			if !pr.keep(o) {
				removed++
				rejected[j] = true
			}
		}
		result.AppliedFilters = append(result.AppliedFilters, pr.name)
		result.RemovedBy[pr.name] = removed
		if len(offers) > 0 && removed == len(offers) {
			soleRemover = pr
			soleCount++
		}
	}

	kept := make([]models.Offer, 0, len(offers))
	for j, o := range offers {
		if !rejected[j] {
			kept = append(kept, o)
		}
	}
	result.FilteredCount = len(kept)

	if len(preds) == 0 || len(offers) == 0 {
		return kept, result
	}

	switch {
	case len(kept) == 0:
		result.Warnings = append(result.Warnings, "No offers match all filters; consider relaxing some of them")
		if soleCount == 1 && soleRemover.relax != nil {
			if s := soleRemover.relax(offers); s != "" {
				result.Suggestions = append(result.Suggestions, s)
			}
		}
	case len(kept) < fewResultsThreshold:
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Only %d offers match; relaxing filters may show more options", len(kept)))
	}

	return kept, result
}

func (p *Pipeline) predicates(f *FilterSet) ([]predicate, []string) {
	catalog := p.Catalog()
	var (
		preds    []predicate
		warnings []string
	)

	if f.PriceMin != nil || f.PriceMax != nil {
		preds = append(preds, predicate{
			name: NamePriceRange,
			keep: func(o models.Offer) bool {
				if f.PriceMin != nil && o.Pricing.TotalPrice < *f.PriceMin {
					return false
				}
				return f.PriceMax == nil || o.Pricing.TotalPrice <= *f.PriceMax
			},
			relax: func(offers []models.Offer) string {
				if f.PriceMax == nil {
					return ""
				}
				cheapest := offers[0].Pricing.TotalPrice
				for _, o := range offers[1:] {
					cheapest = min(cheapest, o.Pricing.TotalPrice)
				}
				return fmt.Sprintf("Raise the maximum price to %.2f to see the cheapest offer", cheapest)
			},
		})
	}

	if len(f.Carriers) > 0 {
		carriers := upperSet(f.Carriers)
		preds = append(preds, predicate{
			name: NameCarriers,
			keep: func(o models.Offer) bool { return carriers[strings.ToUpper(o.Carrier)] },
		})
	}

	if len(f.IncludeAircraft) > 0 {
		allowed := upperSet(f.IncludeAircraft)
		preds = append(preds, predicate{
			name: NameIncludeAircraft,
			keep: func(o models.Offer) bool { return anyAircraft(o, allowed) },
		})
	}

	if len(f.ExcludeAircraft) > 0 {
		denied := upperSet(f.ExcludeAircraft)
		preds = append(preds, predicate{
			name: NameExcludeAircraft,
			keep: func(o models.Offer) bool { return !anyAircraft(o, denied) },
		})
	}

	if len(f.Alliances) > 0 {
		wanted := make(map[Alliance]bool, len(f.Alliances))
		for _, a := range f.Alliances {
			wanted[Alliance(strings.ToLower(string(a)))] = true
		}
		preds = append(preds, predicate{
			name: NameAlliance,
			keep: func(o models.Offer) bool {
				a, ok := catalog.AllianceOf(primaryCarrier(o))
				return ok && wanted[a]
			},
			relax: func(offers []models.Offer) string {
				present := map[Alliance]bool{}
				for _, o := range offers {
					if a, ok := catalog.AllianceOf(primaryCarrier(o)); ok {
						present[a] = true
					}
				}
				if len(present) == 0 {
					return "Remove the alliance filter; no offer is operated by an alliance member"
				}
				return fmt.Sprintf("Include %s in the alliance filter", strings.Join(sortedAlliances(present), ", "))
			},
		})
	}

	if f.DepartureWindow != nil {
		if w, err := parseWindow(*f.DepartureWindow); err != nil {
			warnings = append(warnings, fmt.Sprintf("Ignored departure time filter: %v", err))
		} else {
			preds = append(preds, predicate{
				name:  NameDepartureWindow,
				keep:  func(o models.Offer) bool { return w.contains(localDeparture(o)) },
				relax: func([]models.Offer) string { return "Widen the departure time window" },
			})
		}
	}

	if f.ArrivalWindow != nil {
		if w, err := parseWindow(*f.ArrivalWindow); err != nil {
			warnings = append(warnings, fmt.Sprintf("Ignored arrival time filter: %v", err))
		} else {
			preds = append(preds, predicate{
				name:  NameArrivalWindow,
				keep:  func(o models.Offer) bool { return w.contains(localArrival(o)) },
				relax: func([]models.Offer) string { return "Widen the arrival time window" },
			})
		}
	}

	if f.MaxTravelMinutes != nil {
		limit := *f.MaxTravelMinutes
		preds = append(preds, predicate{
			name: NameMaxTravelTime,
			keep: func(o models.Offer) bool { return o.TotalDuration <= limit },
			relax: func(offers []models.Offer) string {
				shortest := offers[0].TotalDuration
				for _, o := range offers[1:] {
					shortest = min(shortest, o.TotalDuration)
				}
				return fmt.Sprintf("Allow at least %s of travel time", formatMinutes(shortest))
			},
		})
	}

	if f.MinLayoverMinutes != nil || f.MaxLayoverMinutes != nil {
		mode := f.LayoverMode
		if mode == "" {
			mode = LayoverEach
		}
		preds = append(preds, predicate{
			name: NameLayoverDuration,
			keep: func(o models.Offer) bool { return layoverWithin(o, mode, f.MinLayoverMinutes, f.MaxLayoverMinutes) },
			relax: func([]models.Offer) string {
				return "Widen the allowed layover duration"
			},
		})
	}

	if len(f.PreferredLayoverAirports) > 0 {
		preferred := upperSet(f.PreferredLayoverAirports)
		preds = append(preds, predicate{
			name: NamePreferredLayover,
			keep: func(o models.Offer) bool {
				for _, l := range o.Layovers() {
					if !preferred[strings.ToUpper(l.Airport)] {
						return false
					}
				}
				return true
			},
		})
	}

	if len(f.AvoidLayoverAirports) > 0 {
		avoided := upperSet(f.AvoidLayoverAirports)
		preds = append(preds, predicate{
			name: NameAvoidLayover,
			keep: func(o models.Offer) bool {
				for _, l := range o.Layovers() {
					if avoided[strings.ToUpper(l.Airport)] {
						return false
					}
				}
				return true
			},
		})
	}

	if f.MaxSegments != nil {
		limit := *f.MaxSegments
		preds = append(preds, predicate{
			name: NameMaxSegments,
			keep: func(o models.Offer) bool { return len(o.Segments) <= limit },
			relax: func(offers []models.Offer) string {
				fewest := len(offers[0].Segments)
				for _, o := range offers[1:] {
					fewest = min(fewest, len(o.Segments))
				}
				return fmt.Sprintf("Allow up to %d segments", fewest)
			},
		})
	}

	if f.DirectOnly {
		preds = append(preds, predicate{
			name: NameDirectOnly,
			keep: models.Offer.IsDirect,
			relax: func(offers []models.Offer) string {
				oneStop := 0
				for _, o := range offers {
					if o.LayoverCount == 1 {
						oneStop++
					}
				}
				if oneStop == 0 {
					return ""
				}
				return fmt.Sprintf("Allow 1 stop to see %d more offers", oneStop)
			},
		})
	}

	if f.AvoidRedEye {
		band := DefaultRedEyeWindow
		if f.RedEyeWindow != nil {
			band = *f.RedEyeWindow
		}
		if w, err := parseWindow(band); err != nil {
			warnings = append(warnings, fmt.Sprintf("Ignored red-eye filter: %v", err))
		} else {
			preds = append(preds, predicate{
				name:  NameAvoidRedEye,
				keep:  func(o models.Offer) bool { return !w.contains(localDeparture(o)) },
				relax: func([]models.Offer) string { return "Include red-eye departures" },
			})
		}
	}

	if f.PreferDaytime {
		w := mustWindow(DefaultDaytimeWindow)
		preds = append(preds, predicate{
			name: NamePreferDaytime,
			keep: func(o models.Offer) bool {
				return w.contains(localDeparture(o)) && w.contains(localArrival(o))
			},
			relax: func([]models.Offer) string { return "Include early morning and late evening flights" },
		})
	}

	capabilityFilters := []struct {
		enabled bool
		name    string
		cap     Capability
	}{
		{f.RequireWiFi, NameWiFi, CapWiFi},
		{f.RequireLieFlat, NameLieFlat, CapLieFlat},
		{f.RequireFuelEfficient, NameFuelEfficient, CapFuelEfficient},
	}
	for _, cf := range capabilityFilters {
		if !cf.enabled {
			continue
		}
		capability := cf.cap
		preds = append(preds, predicate{
			name: cf.name,
			keep: func(o models.Offer) bool { return allSegmentsHave(catalog, o, capability) },
		})
	}

	if f.AwardOnly {
		preds = append(preds, predicate{
			name:  NameAwardOnly,
			keep:  models.Offer.HasAwardSpace,
			relax: func([]models.Offer) string { return "Consider paying cash; no offer has award space" },
		})
	}

	return preds, warnings
}

func layoverWithin(o models.Offer, mode LayoverMode, minMinutes, maxMinutes *int) bool {
	layovers := o.Layovers()
	if len(layovers) == 0 {
		return true
	}
	within := func(m int) bool {
		if minMinutes != nil && m < *minMinutes {
			return false
		}
		return maxMinutes == nil || m <= *maxMinutes
	}
	if mode == LayoverTotal {
		total := 0
		for _, l := range layovers {
			total += l.Minutes
		}
		return within(total)
	}
	for _, l := range layovers {
		if !within(l.Minutes) {
			return false
		}
	}
	return true
}

// primaryCarrier is the carrier operating the most segments. Ties go to the
// offer's operating carrier, then to segment order.
func primaryCarrier(o models.Offer) string {
	if len(o.Segments) == 0 {
		return o.Carrier
	}
	counts := map[string]int{}
	best := 0
	for _, s := range o.Segments {
		c := strings.ToUpper(s.Carrier)
		counts[c]++
		best = max(best, counts[c])
	}
	if counts[strings.ToUpper(o.Carrier)] == best {
		return o.Carrier
	}
	for _, s := range o.Segments {
		if counts[strings.ToUpper(s.Carrier)] == best {
			return s.Carrier
		}
	}
	return o.Carrier
}

func anyAircraft(o models.Offer, set map[string]bool) bool {
	for _, s := range o.Segments {
		if set[strings.ToUpper(s.Aircraft)] {
			return true
		}
	}
	return false
}

func allSegmentsHave(catalog *Catalog, o models.Offer, c Capability) bool {
	if len(o.Segments) == 0 {
		return false
	}
	for _, s := range o.Segments {
		if !catalog.HasCapability(s.Aircraft, c) {
			return false
		}
	}
	return true
}

func localDeparture(o models.Offer) time.Time {
	if len(o.Segments) == 0 {
		return time.Time{}
	}
	first := o.Segments[0]
	return airports.InLocal(first.Departure, first.Origin)
}

func localArrival(o models.Offer) time.Time {
	if len(o.Segments) == 0 {
		return time.Time{}
	}
	last := o.Segments[len(o.Segments)-1]
	return airports.InLocal(last.Arrival, last.Destination)
}

type window struct {
	start, end int
}

func parseWindow(w TimeWindow) (window, error) {
	start, err := parseTimeOfDay(w.Start)
	if err != nil {
		return window{}, fmt.Errorf("invalid start %q", w.Start)
	}
	end, err := parseTimeOfDay(w.End)
	if err != nil {
		return window{}, fmt.Errorf("invalid end %q", w.End)
	}
	return window{start: start, end: end}, nil
}

func mustWindow(w TimeWindow) window {
	parsed, err := parseWindow(w)
	if err != nil {
		panic(err)
	}
	return parsed
}

func (w window) contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	switch {
	case w.start == w.end:
		return true
	case w.start < w.end:
		return m >= w.start && m < w.end
	default:
		return m >= w.start || m < w.end
	}
}

func parseTimeOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func upperSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToUpper(strings.TrimSpace(v))] = true
	}
	return set
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%dh%02dm", m/60, m%60)
}
