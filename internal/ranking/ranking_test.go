package ranking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dharmasatrya/fareengine/internal/models"
	"github.com/dharmasatrya/fareengine/internal/ranking"
)

func offer(id string, price float64, depHour, minutes, stops int) models.Offer {
	dep := time.Date(2026, 6, 12, depHour, 0, 0, 0, time.UTC)
	segs := make([]models.RouteSegment, stops+1)
	per := minutes / (stops + 1)
	at := dep
	for i := range segs {
		segs[i] = models.RouteSegment{Carrier: "BA", Departure: at, Arrival: at.Add(time.Duration(per) * time.Minute)}
		at = segs[i].Arrival
	}
	return models.Offer{ID: id, Segments: segs, Pricing: models.NewPricing(price, 0, 0, "USD")}.WithDerivedFields()
}

func ids(offers []models.Offer) []string {
	out := make([]string, len(offers))
	for i, o := range offers {
		out[i] = o.ID
	}
	return out
}

func TestSort(t *testing.T) {
	offers := []models.Offer{
		offer("b", 500, 9, 420, 0),
		offer("a", 300, 14, 600, 1),
		offer("c", 300, 6, 480, 2),
	}

	tests := []struct {
		by       ranking.SortField
		order    ranking.SortOrder
		expected []string
	}{
		{ranking.SortPrice, ranking.Ascending, []string{"a", "c", "b"}},
		{ranking.SortPrice, ranking.Descending, []string{"b", "a", "c"}},
		{ranking.SortDuration, ranking.Ascending, []string{"b", "c", "a"}},
		{ranking.SortDeparture, ranking.Ascending, []string{"c", "b", "a"}},
		{ranking.SortStops, ranking.Ascending, []string{"b", "a", "c"}},
		{"", "", []string{"a", "c", "b"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.by)+"_"+string(tt.order), func(t *testing.T) {
			assert.Equal(t, tt.expected, ids(ranking.Sort(offers, tt.by, tt.order)))
		})
	}

	assert.Equal(t, "b", offers[0].ID, "input must not be reordered")
}

func TestSort_IndependentOfInputOrder(t *testing.T) {
	x := []models.Offer{offer("x", 200, 8, 300, 0), offer("y", 200, 8, 300, 0)}
	y := []models.Offer{x[1], x[0]}
	assert.Equal(t, ids(ranking.Sort(x, ranking.SortPrice, ranking.Ascending)), ids(ranking.Sort(y, ranking.SortPrice, ranking.Ascending)))
}

func TestCalculateBestValue(t *testing.T) {
	o := offer("a", 500, 9, 600, 1)
	// 0.5*100 + 0.3*100 + 0.2*15
	assert.Equal(t, 83.0, ranking.CalculateBestValue(o, 500, 600))

	scores := ranking.Scores([]models.Offer{o, offer("b", 250, 9, 300, 0)})
	assert.Less(t, scores["b"], scores["a"])
}
