package optimizer

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dharmasatrya/fareengine/internal/models"
)

var ErrTooFewCities = errors.New("multi-city route needs at least three cities")

// Stay bounds the time spent in a city between two legs. A zero Max means
// no upper bound.
type Stay struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
}

type MultiCityCriteria struct {
	Cities        []string  `json:"cities"`
	DepartureDate time.Time `json:"departure_date"`
	// Stays[i] applies in Cities[i+1]. Missing entries use DefaultStay.
	Stays       []Stay `json:"stays,omitempty"`
	DefaultStay Stay   `json:"default_stay"`
}

func (m MultiCityCriteria) stay(i int) Stay {
	s := m.DefaultStay
	if i < len(m.Stays) {
		s = m.Stays[i]
	}
	if s.Min <= 0 {
		s.Min = DefaultMinConnection
	}
	return s
}

func (s Stay) allows(arrive, depart time.Time) bool {
	gap := depart.Sub(arrive)
	return gap >= s.Min && (s.Max <= 0 || gap <= s.Max)
}

// OptimizeMultiCityRoute picks one offer per consecutive city pair so the
// total cost is minimal and every stay respects its bounds. A leg with no
// offer compatible with the chain so far is reported with no flights, and
// the chain starts over on the next leg.
func (o *Optimizer) OptimizeMultiCityRoute(criteria MultiCityCriteria, offers []models.Offer) (OptimizedRoute, error) {
	if len(criteria.Cities) < 3 {
		return OptimizedRoute{}, ErrTooFewCities
	}
	cities := make([]string, len(criteria.Cities))
	for i, c := range criteria.Cities {
		cities[i] = strings.ToUpper(strings.TrimSpace(c))
	}

	n := len(cities) - 1
	options := make([][]models.Offer, n)
	for i := 0; i < n; i++ {
		for _, off := range servingSorted(offers, cities[i], cities[i+1]) {
			if i == 0 && !criteria.DepartureDate.IsZero() && departsBeforeDate(off, criteria.DepartureDate) {
				continue
			}
			options[i] = append(options[i], off)
		}
	}

	chosen := chooseChain(options, criteria.stay)
	naive := greedyChain(options, criteria.stay)

	route := OptimizedRoute{
		RouteType: RouteMultiCity,
		Offers:    []models.Offer{},
		Legs:      make([]Leg, n),
	}
	var naiveCost float64
	naiveMinutes := 0
	infeasible := 0
	var stranded []string
	for i := 0; i < n; i++ {
		leg := Leg{From: cities[i], To: cities[i+1], OptimizedFlights: []models.Offer{}}
		if chosen[i] >= 0 {
			off := options[i][chosen[i]].Clone()
			leg.OptimizedFlights = append(leg.OptimizedFlights, off)
			leg.Cost = off.Pricing.TotalPrice
			route.Offers = append(route.Offers, off)
			route.TotalCost += off.Pricing.TotalPrice
			route.TotalMinutes += off.TotalDuration
			if naive[i] >= 0 {
				naiveCost += options[i][naive[i]].Pricing.TotalPrice
				naiveMinutes += options[i][naive[i]].TotalDuration
			} else {
				stranded = append(stranded, leg.From+"-"+leg.To)
			}
		} else {
			infeasible++
			route.Recommendations = append(route.Recommendations,
				fmt.Sprintf("No offer fits the %s to %s leg; search it separately or relax the stay limits", leg.From, leg.To))
		}
		route.Legs[i] = leg
	}

	route.TotalCost = round2(route.TotalCost)
	switch {
	case len(stranded) > 0:
		// No complete naive itinerary to compare against.
		route.Recommendations = append(route.Recommendations,
			fmt.Sprintf("Booking the earliest connections leaves no flight for %s; this route is the only complete option found",
				strings.Join(stranded, ", ")))
	case len(route.Offers) > 0:
		route.Savings = round2(naiveCost - route.TotalCost)
		route.OptimizationScore = Score(route.Savings, naiveCost, naiveMinutes, route.TotalMinutes)
		if route.Savings > 0 {
			route.Recommendations = append(route.Recommendations,
				fmt.Sprintf("Choosing flights across all legs together saves %.2f over booking the earliest connections", route.Savings))
		}
	}

	o.logger.Debug().
		Strs("cities", cities).
		Int("infeasible_legs", infeasible).
		Float64("total_cost", route.TotalCost).
		Msg("multi-city route optimized")
	return route, nil
}

// chooseChain returns, per leg, the index of the selected option or -1.
// best[i][j] is the cheapest cost of a chain that ends with option j of
// leg i, counted from the last restart.
func chooseChain(options [][]models.Offer, stay func(int) Stay) []int {
	n := len(options)
	best := make([][]float64, n)
	prev := make([][]int, n)
	feasible := make([]bool, n)

	for i := 0; i < n; i++ {
		best[i] = make([]float64, len(options[i]))
		prev[i] = make([]int, len(options[i]))
		restart := i == 0 || !feasible[i-1]
		for j, off := range options[i] {
			best[i][j] = math.Inf(1)
			prev[i][j] = -1
			if restart {
				best[i][j] = off.Pricing.TotalPrice
				continue
			}
			bounds := stay(i - 1)
			for k, before := range options[i-1] {
				if math.IsInf(best[i-1][k], 1) || !bounds.allows(before.ArrivalTime(), off.DepartureTime()) {
					continue
				}
				if cost := best[i-1][k] + off.Pricing.TotalPrice; cost < best[i][j] {
					best[i][j] = cost
					prev[i][j] = k
				}
			}
		}
		for j := range options[i] {
			if !math.IsInf(best[i][j], 1) {
				feasible[i] = true
				break
			}
		}
	}

	chosen := make([]int, n)
	for i := range chosen {
		chosen[i] = -1
	}
	// Walk each run of feasible legs back from its cheapest end.
	for i := n - 1; i >= 0; i-- {
		if !feasible[i] || chosen[i] >= 0 {
			continue
		}
		if i+1 < n && feasible[i+1] {
			continue
		}
		end := 0
		for j := range best[i] {
			if best[i][j] < best[i][end] {
				end = j
			}
		}
		for leg, j := i, end; leg >= 0 && j >= 0; leg-- {
			chosen[leg] = j
			j = prev[leg][j]
		}
	}
	return chosen
}

// greedyChain books the earliest compatible departure on every leg, the
// selection a traveler gets without optimizing across legs.
func greedyChain(options [][]models.Offer, stay func(int) Stay) []int {
	picks := make([]int, len(options))
	for i, legOptions := range options {
		picks[i] = -1
		var last *models.Offer
		if i > 0 && picks[i-1] >= 0 {
			last = &options[i-1][picks[i-1]]
		}
		for j, off := range legOptions {
			if last != nil && !stay(i-1).allows(last.ArrivalTime(), off.DepartureTime()) {
				continue
			}
			if picks[i] < 0 || off.DepartureTime().Before(legOptions[picks[i]].DepartureTime()) {
				picks[i] = j
			}
		}
	}
	return picks
}

func departsBeforeDate(o models.Offer, date time.Time) bool {
	dep := o.DepartureTime()
	y, m, d := dep.Date()
	local := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	dy, dm, dd := date.Date()
	return local.Before(time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC))
}
