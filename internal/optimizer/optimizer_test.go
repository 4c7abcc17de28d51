package optimizer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/fareengine/internal/models"
	"github.com/dharmasatrya/fareengine/internal/optimizer"
)

func mk(id, from, to string, price float64, dep time.Time, minutes int) models.Offer {
	return models.Offer{
		ID:      id,
		Source:  "test",
		Carrier: "BA",
		Segments: []models.RouteSegment{{
			Carrier:         "BA",
			FlightNumber:    "BA" + id,
			Origin:          from,
			Destination:     to,
			Departure:       dep,
			Arrival:         dep.Add(time.Duration(minutes) * time.Minute),
			DurationMinutes: minutes,
		}},
		Pricing: models.NewPricing(price, 0, 0, "USD"),
	}.WithDerivedFields()
}

func day(d, hour int) time.Time {
	return time.Date(2026, 6, d, hour, 0, 0, 0, time.UTC)
}

func oneWay(from, to string) models.SearchCriteria {
	return models.SearchCriteria{
		Origin:        from,
		Destination:   to,
		DepartureDate: day(1, 0),
		Passengers:    models.Passengers{Adults: 1},
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name                  string
		savings, baseline     float64
		baselineMins, minutes int
		want                  float64
	}{
		{"no change", 0, 100, 60, 60, 65},
		{"free trip", 100, 100, 60, 60, 100},
		{"costs double", -100, 100, 60, 60, 30},
		{"capped loss", -500, 100, 60, 60, 30},
		{"twice as long", 0, 100, 60, 120, 50},
		{"no baseline cost", 50, 0, 60, 60, 65},
		{"empty duration", 0, 100, 60, 0, 65},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, optimizer.Score(tt.savings, tt.baseline, tt.baselineMins, tt.minutes), 0.001)
		})
	}
}

func TestScore_MonotonicInSavings(t *testing.T) {
	prev := -1.0
	for savings := -300.0; savings <= 300; savings += 7.5 {
		s := optimizer.Score(savings, 200, 300, 420)
		assert.GreaterOrEqual(t, s, prev)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 100.0)
		prev = s
	}
}

func TestFindPositioningFlights_NotCheaperIsInfeasible(t *testing.T) {
	offers := []models.Offer{
		mk("direct", "JFK", "LHR", 450, day(1, 18), 420),
		mk("pos", "JFK", "EWR", 100, day(1, 10), 60),
		mk("main", "EWR", "LHR", 400, day(1, 13), 420),
	}

	got := optimizer.New().FindPositioningFlights(oneWay("JFK", "LHR"), offers, 150)
	require.Len(t, got, 1)
	s := got[0]
	assert.Equal(t, "EWR", s.AlternateAirport)
	assert.Equal(t, 500.0, s.TotalCost)
	assert.Equal(t, 450.0, s.OriginalBestPrice)
	assert.Equal(t, -50.0, s.Savings)
	assert.False(t, s.Feasible)
	assert.InDelta(t, 21, s.DetourMiles, 3)
}

func TestFindPositioningFlights(t *testing.T) {
	offers := []models.Offer{
		mk("direct", "JFK", "LHR", 450, day(1, 18), 420),
		mk("ewr-pos", "JFK", "EWR", 100, day(1, 10), 60),
		mk("ewr-main", "EWR", "LHR", 300, day(1, 13), 420),
		mk("ewr-tight", "EWR", "LHR", 150, day(1, 11), 420),
		mk("phl-pos", "JFK", "PHL", 80, day(1, 8), 60),
		mk("phl-main", "PHL", "LHR", 250, day(1, 12), 420),
	}
	o := optimizer.New()

	got := o.FindPositioningFlights(oneWay("JFK", "LHR"), offers, 150)
	require.Len(t, got, 2)
	assert.Equal(t, "PHL", got[0].AlternateAirport)
	assert.Equal(t, 330.0, got[0].TotalCost)
	assert.Equal(t, 120.0, got[0].Savings)
	assert.True(t, got[0].Feasible)

	assert.Equal(t, "EWR", got[1].AlternateAirport)
	assert.Equal(t, "ewr-main", got[1].MainOffer.ID, "a main flight inside the minimum connection is skipped")
	assert.True(t, got[1].Feasible)

	got = o.FindPositioningFlights(oneWay("JFK", "LHR"), offers, 50)
	require.Len(t, got, 2)
	assert.False(t, got[0].Feasible, "PHL is beyond the detour limit")
	assert.True(t, got[1].Feasible)

	got = o.FindPositioningFlights(oneWay("JFK", "LHR"), offers[1:], 150)
	require.Len(t, got, 2)
	for _, s := range got {
		assert.False(t, s.Feasible, "nothing is feasible without a direct baseline")
	}
}

func TestOptimizeRoute_Direct(t *testing.T) {
	offers := []models.Offer{
		mk("a", "JFK", "LHR", 600, day(1, 9), 420),
		mk("b", "JFK", "LHR", 450, day(1, 18), 420),
	}

	route := optimizer.New().OptimizeRoute(oneWay("jfk", "lhr"), offers, optimizer.Options{})
	assert.Equal(t, optimizer.RouteDirect, route.RouteType)
	require.Len(t, route.Offers, 1)
	assert.Equal(t, "b", route.Offers[0].ID)
	assert.Equal(t, 450.0, route.TotalCost)
	assert.Zero(t, route.Savings)
	assert.Equal(t, 65.0, route.OptimizationScore)
	assert.NotEmpty(t, route.Recommendations)
}

func TestOptimizeRoute_Empty(t *testing.T) {
	route := optimizer.New().OptimizeRoute(oneWay("JFK", "LHR"), nil, optimizer.Options{ConsiderPositioning: true})
	assert.Empty(t, route.Offers)
	assert.Zero(t, route.OptimizationScore)
	assert.Zero(t, route.TotalCost)
}

func TestOptimizeRoute_Positioning(t *testing.T) {
	offers := []models.Offer{
		mk("direct", "JFK", "LHR", 450, day(1, 18), 420),
		mk("phl-pos", "JFK", "PHL", 80, day(1, 8), 60),
		mk("phl-main", "PHL", "LHR", 250, day(1, 12), 420),
	}

	route := optimizer.New().OptimizeRoute(oneWay("JFK", "LHR"), offers, optimizer.Options{ConsiderPositioning: true})
	assert.Equal(t, optimizer.RoutePositioning, route.RouteType)
	require.Len(t, route.Offers, 2)
	assert.Equal(t, 330.0, route.TotalCost)
	assert.Equal(t, 120.0, route.Savings)
	assert.Equal(t, 660, route.TotalMinutes)
	assert.InDelta(t, 63.42, route.OptimizationScore, 0.01)
	assert.Contains(t, route.Recommendations[0], "PHL")
}

func TestOptimizeRoute_Stopover(t *testing.T) {
	offers := []models.Offer{
		mk("direct", "JFK", "CDG", 900, day(1, 18), 450),
		mk("to-lhr", "JFK", "LHR", 300, day(1, 0), 420),
		mk("short", "LHR", "CDG", 100, day(1, 9), 75),
		mk("next-day", "LHR", "CDG", 200, day(2, 9), 75),
	}
	o := optimizer.New()

	route := o.OptimizeRoute(oneWay("JFK", "CDG"), offers, optimizer.Options{AllowStopover: true})
	assert.Equal(t, optimizer.RouteStopover, route.RouteType)
	require.Len(t, route.Offers, 2)
	assert.Equal(t, "next-day", route.Offers[1].ID)
	assert.Equal(t, 400.0, route.Savings)

	route = o.OptimizeRoute(oneWay("JFK", "CDG"), offers, optimizer.Options{})
	assert.Equal(t, optimizer.RouteDirect, route.RouteType, "stopovers only when enabled")
}

func TestOptimizeRoute_OpenJaw(t *testing.T) {
	ret := day(8, 0)
	c := oneWay("JFK", "LHR")
	c.ReturnDate = &ret

	offers := []models.Offer{
		mk("out", "JFK", "LHR", 400, day(1, 18), 420),
		mk("back", "LHR", "JFK", 500, day(8, 10), 480),
		mk("jaw", "LGW", "EWR", 300, day(8, 12), 480),
		mk("far", "CDG", "JFK", 100, day(8, 12), 480),
	}
	o := optimizer.New()

	route := o.OptimizeRoute(c, offers, optimizer.Options{AllowOpenJaw: true})
	assert.Equal(t, optimizer.RouteOpenJaw, route.RouteType)
	require.Len(t, route.Offers, 2)
	assert.Equal(t, "jaw", route.Offers[1].ID)
	assert.Equal(t, 700.0, route.TotalCost)
	assert.Equal(t, 200.0, route.Savings)

	route = o.OptimizeRoute(c, offers, optimizer.Options{})
	assert.Equal(t, optimizer.RouteDirect, route.RouteType)
	assert.Equal(t, 900.0, route.TotalCost)
}

func roundTrip(from, to string) models.SearchCriteria {
	c := oneWay(from, to)
	ret := day(8, 0)
	c.ReturnDate = &ret
	return c
}

func TestOptimizeRoute_RoundTripComparesWholeTrips(t *testing.T) {
	offers := []models.Offer{
		mk("out", "JFK", "LHR", 450, day(1, 18), 420),
		mk("back", "LHR", "JFK", 400, day(8, 10), 480),
		mk("to-dub", "JFK", "DUB", 300, day(1, 0), 360),
		mk("dub-lhr", "DUB", "LHR", 300, day(2, 9), 75),
	}
	o := optimizer.New()

	route := o.OptimizeRoute(roundTrip("JFK", "LHR"), offers, optimizer.Options{AllowStopover: true})
	assert.Equal(t, optimizer.RouteDirect, route.RouteType, "600 one way plus 400 back is dearer than 850")
	require.Len(t, route.Offers, 2)
	assert.Equal(t, "back", route.Offers[1].ID)
	assert.Equal(t, 850.0, route.TotalCost)
	assert.Zero(t, route.Savings)

	route = o.OptimizeRoute(oneWay("JFK", "LHR"), offers, optimizer.Options{AllowStopover: true})
	assert.Equal(t, optimizer.RouteDirect, route.RouteType)
	assert.Equal(t, 450.0, route.TotalCost)
}

func TestOptimizeRoute_RoundTripPositioningKeepsReturn(t *testing.T) {
	offers := []models.Offer{
		mk("out", "JFK", "LHR", 450, day(1, 18), 420),
		mk("back", "LHR", "JFK", 400, day(8, 10), 480),
		mk("pos", "JFK", "EWR", 100, day(1, 10), 60),
		mk("main", "EWR", "LHR", 300, day(1, 13), 420),
	}

	route := optimizer.New().OptimizeRoute(roundTrip("JFK", "LHR"), offers, optimizer.Options{ConsiderPositioning: true})
	assert.Equal(t, optimizer.RoutePositioning, route.RouteType)
	require.Len(t, route.Offers, 3)
	assert.Equal(t, []string{"pos", "main", "back"}, []string{route.Offers[0].ID, route.Offers[1].ID, route.Offers[2].ID})
	assert.Equal(t, 800.0, route.TotalCost)
	assert.Equal(t, 50.0, route.Savings)
}

func TestOptimizeRoute_RoundTripAlternativeNeedsReturn(t *testing.T) {
	offers := []models.Offer{
		mk("out", "JFK", "LHR", 450, day(1, 18), 420),
		mk("back", "LHR", "JFK", 400, day(2, 8), 480),
		mk("to-dub", "JFK", "DUB", 100, day(1, 0), 360),
		mk("dub-lhr", "DUB", "LHR", 100, day(2, 9), 75),
	}

	route := optimizer.New().OptimizeRoute(roundTrip("JFK", "LHR"), offers, optimizer.Options{AllowStopover: true})
	assert.Equal(t, optimizer.RouteDirect, route.RouteType, "the only return leaves before the stopover lands")
	assert.Equal(t, 850.0, route.TotalCost)
}

func multiCityOffers() []models.Offer {
	return []models.Offer{
		mk("a1", "JFK", "LHR", 300, day(1, 10), 420),
		mk("a2", "JFK", "LHR", 200, day(3, 10), 420),
		mk("b1", "LHR", "CDG", 100, day(2, 10), 60),
		mk("b2", "LHR", "CDG", 50, day(6, 10), 60),
		mk("c1", "CDG", "FCO", 80, day(7, 9), 120),
		mk("c2", "CDG", "FCO", 150, day(3, 9), 120),
	}
}

func TestOptimizeMultiCityRoute(t *testing.T) {
	criteria := optimizer.MultiCityCriteria{
		Cities:      []string{"JFK", "LHR", "CDG", "FCO"},
		DefaultStay: optimizer.Stay{Max: 72 * time.Hour},
	}

	route, err := optimizer.New().OptimizeMultiCityRoute(criteria, multiCityOffers())
	require.NoError(t, err)

	assert.Equal(t, optimizer.RouteMultiCity, route.RouteType)
	require.Len(t, route.Legs, 3)
	var ids []string
	for _, leg := range route.Legs {
		require.Len(t, leg.OptimizedFlights, 1)
		ids = append(ids, leg.OptimizedFlights[0].ID)
	}
	assert.Equal(t, []string{"a2", "b2", "c1"}, ids)
	assert.Equal(t, 330.0, route.TotalCost)
	assert.Equal(t, 220.0, route.Savings, "the earliest connections cost 550")
	assert.Greater(t, route.OptimizationScore, 65.0)
}

func TestOptimizeMultiCityRoute_InfeasibleLegRestartsChain(t *testing.T) {
	offers := []models.Offer{
		mk("a", "JFK", "LHR", 300, day(5, 10), 420),
		mk("early", "LHR", "CDG", 100, day(2, 10), 60),
		mk("c-cheap", "CDG", "FCO", 80, day(1, 9), 120),
		mk("c-late", "CDG", "FCO", 120, day(9, 9), 120),
	}
	criteria := optimizer.MultiCityCriteria{Cities: []string{"jfk", "lhr", "cdg", "fco"}}

	route, err := optimizer.New().OptimizeMultiCityRoute(criteria, offers)
	require.NoError(t, err)

	require.Len(t, route.Legs, 3)
	assert.Len(t, route.Legs[0].OptimizedFlights, 1)
	assert.Empty(t, route.Legs[1].OptimizedFlights)
	require.Len(t, route.Legs[2].OptimizedFlights, 1)
	assert.Equal(t, "c-cheap", route.Legs[2].OptimizedFlights[0].ID)
	assert.Equal(t, 380.0, route.TotalCost)
	assert.NotEmpty(t, route.Recommendations)
}

func TestOptimizeMultiCityRoute_NoCompleteGreedyChain(t *testing.T) {
	offers := []models.Offer{
		mk("a-early", "JFK", "LHR", 300, day(1, 10), 420),
		mk("a-late", "JFK", "LHR", 350, day(3, 10), 420),
		mk("b", "LHR", "CDG", 100, day(4, 10), 60),
		mk("c", "CDG", "FCO", 80, day(5, 10), 120),
	}
	criteria := optimizer.MultiCityCriteria{
		Cities:      []string{"JFK", "LHR", "CDG", "FCO"},
		DefaultStay: optimizer.Stay{Max: 24 * time.Hour},
	}

	route, err := optimizer.New().OptimizeMultiCityRoute(criteria, offers)
	require.NoError(t, err)

	require.Len(t, route.Offers, 3)
	assert.Equal(t, "a-late", route.Offers[0].ID)
	assert.Equal(t, 530.0, route.TotalCost)
	assert.Zero(t, route.Savings, "a partial earliest-connection chain is not a baseline")
	assert.Zero(t, route.OptimizationScore)
	require.NotEmpty(t, route.Recommendations)
	assert.Contains(t, route.Recommendations[len(route.Recommendations)-1], "LHR-CDG")
}

func TestOptimizeMultiCityRoute_TooFewCities(t *testing.T) {
	_, err := optimizer.New().OptimizeMultiCityRoute(optimizer.MultiCityCriteria{Cities: []string{"JFK", "LHR"}}, nil)
	assert.ErrorIs(t, err, optimizer.ErrTooFewCities)
}
