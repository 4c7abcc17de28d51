package ranking

import (
	"sort"
	"strings"

	"github.com/dharmasatrya/fareengine/internal/models"
)

type SortField string

const (
	SortPrice     SortField = "price"
	SortDuration  SortField = "duration"
	SortDeparture SortField = "departure"
	SortArrival   SortField = "arrival"
	SortStops     SortField = "stops"
	SortBestValue SortField = "best_value"
)

type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Sort returns a sorted copy. Ties fall back to total price and then offer id
// so the order never depends on how results arrived.
func Sort(offers []models.Offer, by SortField, order SortOrder) []models.Offer {
	out := append([]models.Offer(nil), offers...)
	if len(out) < 2 {
		return out
	}

	descending := strings.EqualFold(string(order), string(Descending))
	primary := comparator(out, by)

	sort.SliceStable(out, func(i, j int) bool {
		if c := primary(i, j); c != 0 {
			if descending {
				return c > 0
			}
			return c < 0
		}
		if c := compareFloat(out[i].Pricing.TotalPrice, out[j].Pricing.TotalPrice); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func comparator(offers []models.Offer, by SortField) func(i, j int) int {
	switch SortField(strings.ToLower(string(by))) {
	case SortDuration:
		return func(i, j int) int { return compareInt(offers[i].TotalDuration, offers[j].TotalDuration) }
	case SortDeparture:
		return func(i, j int) int { return offers[i].DepartureTime().Compare(offers[j].DepartureTime()) }
	case SortArrival:
		return func(i, j int) int { return offers[i].ArrivalTime().Compare(offers[j].ArrivalTime()) }
	case SortStops:
		return func(i, j int) int { return compareInt(offers[i].LayoverCount, offers[j].LayoverCount) }
	case SortBestValue:
		scores := Scores(offers)
		return func(i, j int) int { return compareFloat(scores[offers[i].ID], scores[offers[j].ID]) }
	default:
		return func(i, j int) int {
			return compareFloat(offers[i].Pricing.TotalPrice, offers[j].Pricing.TotalPrice)
		}
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
