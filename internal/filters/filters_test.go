package filters_test

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/fareengine/internal/filters"
	"github.com/dharmasatrya/fareengine/internal/models"
)

func seg(carrier, from, to, aircraft string, dep time.Time, minutes int) models.RouteSegment {
	return models.RouteSegment{
		Carrier:         carrier,
		FlightNumber:    carrier + "100",
		Origin:          from,
		Destination:     to,
		Departure:       dep,
		Arrival:         dep.Add(time.Duration(minutes) * time.Minute),
		DurationMinutes: minutes,
		Aircraft:        aircraft,
	}
}

func mkOffer(id string, price float64, segs ...models.RouteSegment) models.Offer {
	return models.Offer{
		ID:       id,
		Source:   "test",
		Carrier:  segs[0].Carrier,
		Segments: segs,
		Pricing:  models.NewPricing(price, 0, 0, "USD"),
	}.WithDerivedFields()
}

// London is on UTC in January, so departures from LHR read as local time.
func at(hour, minute int) time.Time {
	return time.Date(2026, 1, 15, hour, minute, 0, 0, time.UTC)
}

func sampleOffers() []models.Offer {
	direct := mkOffer("direct", 500, seg("BA", "LHR", "CDG", "A320", at(9, 0), 75))
	direct2 := mkOffer("direct2", 450, seg("AF", "LHR", "CDG", "A359", at(23, 0), 75))
	connecting := mkOffer("connecting", 300,
		seg("KL", "LHR", "AMS", "B738", at(7, 0), 70),
		seg("KL", "AMS", "CDG", "E175", at(12, 0), 80),
	)
	return []models.Offer{direct, direct2, connecting}
}

func TestApply_DirectOnly(t *testing.T) {
	offers := sampleOffers()

	kept, res := filters.Apply(offers, &filters.FilterSet{DirectOnly: true})

	assert.Len(t, kept, 2)
	assert.Contains(t, res.AppliedFilters, "Direct flights only")
	assert.Equal(t, 1, res.RemovedBy[filters.NameDirectOnly])
	assert.Equal(t, 3, res.OriginalCount)
	assert.Equal(t, 2, res.FilteredCount)
	assert.Len(t, res.Warnings, 1, "two offers left triggers the soft warning")
}

func TestApply_Idempotent(t *testing.T) {
	maxPrice := 480.0
	set := &filters.FilterSet{PriceMax: &maxPrice, AvoidRedEye: true}

	once, _ := filters.Apply(sampleOffers(), set)
	twice, _ := filters.Apply(once, set)
	assert.Equal(t, once, twice)
}

func TestApply_IndependentRemovalCounts(t *testing.T) {
	maxSegments := 1
	set := &filters.FilterSet{
		MaxSegments: &maxSegments,
		AvoidRedEye: true,
	}

	kept, res := filters.Apply(sampleOffers(), set)
	require.Len(t, kept, 1)
	assert.Equal(t, "direct", kept[0].ID)
	assert.Equal(t, 1, res.RemovedBy[filters.NameMaxSegments])
	assert.Equal(t, 1, res.RemovedBy[filters.NameAvoidRedEye])
	assert.Equal(t, []string{filters.NameMaxSegments, filters.NameAvoidRedEye}, res.AppliedFilters)
}

func TestApply_NilSetKeepsEverything(t *testing.T) {
	kept, res := filters.Apply(sampleOffers(), nil)
	assert.Len(t, kept, 3)
	assert.Empty(t, res.AppliedFilters)
	assert.Empty(t, res.Warnings)
}

func TestApply_EmptyResultSuggestion(t *testing.T) {
	connecting := sampleOffers()[2]

	kept, res := filters.Apply([]models.Offer{connecting}, &filters.FilterSet{DirectOnly: true})
	assert.Empty(t, kept)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "relaxing")
	require.Len(t, res.Suggestions, 1)
	assert.Contains(t, res.Suggestions[0], "Allow 1 stop")
}

func TestApply_NoSuggestionWhenSeveralFiltersEmptyTheResult(t *testing.T) {
	connecting := sampleOffers()[2]
	maxTravel := 10

	kept, res := filters.Apply([]models.Offer{connecting}, &filters.FilterSet{
		DirectOnly:       true,
		MaxTravelMinutes: &maxTravel,
	})
	assert.Empty(t, kept)
	assert.Empty(t, res.Suggestions)
}

func TestApply_Aircraft(t *testing.T) {
	offers := sampleOffers()

	kept, _ := filters.Apply(offers, &filters.FilterSet{IncludeAircraft: []string{"e175"}})
	require.Len(t, kept, 1)
	assert.Equal(t, "connecting", kept[0].ID)

	kept, _ = filters.Apply(offers, &filters.FilterSet{ExcludeAircraft: []string{"E175", "A320"}})
	require.Len(t, kept, 1)
	assert.Equal(t, "direct2", kept[0].ID)
}

func TestApply_Alliance(t *testing.T) {
	offers := sampleOffers()

	kept, _ := filters.Apply(offers, &filters.FilterSet{Alliances: []filters.Alliance{filters.SkyTeam}})
	var ids []string
	for _, o := range kept {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []string{"direct2", "connecting"}, ids)

	mixed := mkOffer("mixed", 400,
		seg("BA", "LHR", "AMS", "A320", at(8, 0), 70),
		seg("KL", "AMS", "CDG", "E175", at(11, 0), 80),
	)
	kept, _ = filters.Apply([]models.Offer{mixed}, &filters.FilterSet{Alliances: []filters.Alliance{filters.Oneworld}})
	assert.Len(t, kept, 1, "ties go to the offer's carrier")

	// Marketed by KL with a BA first segment: the tie follows the offer's
	// carrier, not segment order.
	mixed.Carrier = "KL"
	kept, _ = filters.Apply([]models.Offer{mixed}, &filters.FilterSet{Alliances: []filters.Alliance{filters.SkyTeam}})
	assert.Len(t, kept, 1)
	kept, _ = filters.Apply([]models.Offer{mixed}, &filters.FilterSet{Alliances: []filters.Alliance{filters.Oneworld}})
	assert.Empty(t, kept)

	// A clear majority wins over the offer's carrier.
	majority := mkOffer("majority", 450,
		seg("KL", "LHR", "AMS", "E175", at(7, 0), 70),
		seg("BA", "AMS", "LHR", "A320", at(10, 0), 70),
		seg("BA", "LHR", "CDG", "A320", at(13, 0), 75),
	)
	kept, _ = filters.Apply([]models.Offer{majority}, &filters.FilterSet{Alliances: []filters.Alliance{filters.Oneworld}})
	assert.Len(t, kept, 1)
}

func TestApply_TimeWindows(t *testing.T) {
	offers := sampleOffers()

	tests := []struct {
		name   string
		window filters.TimeWindow
		want   []string
	}{
		{"morning", filters.TimeWindow{Start: "06:00", End: "10:00"}, []string{"direct", "connecting"}},
		{"crosses midnight", filters.TimeWindow{Start: "22:00", End: "08:00"}, []string{"direct2", "connecting"}},
		{"end exclusive", filters.TimeWindow{Start: "07:00", End: "09:00"}, []string{"connecting"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tt.window
			kept, _ := filters.Apply(offers, &filters.FilterSet{DepartureWindow: &w})
			var ids []string
			for _, o := range kept {
				ids = append(ids, o.ID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}
}

func TestApply_InvalidWindowIsIgnored(t *testing.T) {
	kept, res := filters.Apply(sampleOffers(), &filters.FilterSet{
		ArrivalWindow: &filters.TimeWindow{Start: "25:00", End: "06:00"},
	})
	assert.Len(t, kept, 3)
	assert.Empty(t, res.AppliedFilters)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Ignored arrival time filter")
}

func TestApply_Layovers(t *testing.T) {
	offers := sampleOffers()
	maxLayover := 120
	minLayover := 200

	kept, _ := filters.Apply(offers, &filters.FilterSet{MaxLayoverMinutes: &maxLayover})
	assert.Len(t, kept, 2, "the connecting offer has a 230 minute layover")

	kept, _ = filters.Apply(offers, &filters.FilterSet{MinLayoverMinutes: &minLayover, LayoverMode: filters.LayoverTotal})
	assert.Len(t, kept, 3)

	kept, _ = filters.Apply(offers, &filters.FilterSet{AvoidLayoverAirports: []string{"ams"}})
	assert.Len(t, kept, 2)

	kept, _ = filters.Apply(offers, &filters.FilterSet{PreferredLayoverAirports: []string{"FRA"}})
	assert.Len(t, kept, 2, "direct offers have no layovers to disqualify them")
}

func TestApply_Daytime(t *testing.T) {
	kept, _ := filters.Apply(sampleOffers(), &filters.FilterSet{PreferDaytime: true})
	var ids []string
	for _, o := range kept {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []string{"direct", "connecting"}, ids)
}

func TestApply_Capabilities(t *testing.T) {
	offers := sampleOffers()
	unknown := mkOffer("unknown", 200, seg("BA", "LHR", "CDG", "ZZZZ", at(10, 0), 75))
	offers = append(offers, unknown)

	kept, _ := filters.Apply(offers, &filters.FilterSet{RequireLieFlat: true})
	require.Len(t, kept, 1)
	assert.Equal(t, "direct2", kept[0].ID)

	kept, _ = filters.Apply(offers, &filters.FilterSet{RequireWiFi: true})
	var ids []string
	for _, o := range kept {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []string{"direct", "direct2"}, ids, "E175 lacks wifi and unknown types fail")
}

func TestApply_AwardOnly(t *testing.T) {
	offers := sampleOffers()
	offers[1].Pricing.PointsOptions = []models.PointsOption{{ProgramID: "flying-blue", PointsRequired: 15000}}
	offers[2].Pricing.PointsOptions = []models.PointsOption{{ProgramID: "flying-blue"}}

	kept, _ := filters.Apply(offers, &filters.FilterSet{AwardOnly: true})
	require.Len(t, kept, 1)
	assert.Equal(t, "direct2", kept[0].ID)
}

func TestAvailableOptions(t *testing.T) {
	opts := filters.AvailableOptions(sampleOffers())
	assert.Equal(t, []string{"A320", "A359", "B738", "E175"}, opts.AircraftTypes)
	assert.Equal(t, []string{"AF", "BA", "KL"}, opts.Carriers)
	assert.Equal(t, []string{"AMS"}, opts.LayoverAirports)
	assert.Equal(t, []string{"oneworld", "skyteam"}, opts.Alliances)
	assert.Equal(t, 75, opts.MinTravelMinutes)
	assert.Equal(t, 380, opts.MaxTravelMinutes)

	empty := filters.AvailableOptions(nil)
	assert.Equal(t, math.MaxInt, empty.MinTravelMinutes)
	assert.Equal(t, 0, empty.MaxTravelMinutes)
	assert.Empty(t, empty.Carriers)
}

func TestRecommend(t *testing.T) {
	offers := sampleOffers()
	offers = append(offers, mkOffer("connecting2", 280,
		seg("UA", "LHR", "FRA", "A320", at(6, 30), 90),
		seg("UA", "FRA", "CDG", "A320", at(14, 0), 70),
	))
	c := models.SearchCriteria{CabinClass: models.CabinBusiness}

	recs := filters.Recommend(c, offers)
	names := map[string]bool{}
	for _, r := range recs {
		names[r.Filter] = true
	}

	assert.False(t, names[filters.NameDirectOnly], "half the offers are direct")
	assert.False(t, names[filters.NameAvoidRedEye], "one overnight departure out of four")
	assert.True(t, names[filters.NameLayoverDuration])
	assert.True(t, names[filters.NameAlliance])
	assert.True(t, names[filters.NameLieFlat])
	assert.False(t, names[filters.NameAwardOnly])

	assert.Empty(t, filters.Recommend(c, nil))
}

func TestLoadCatalog(t *testing.T) {
	raw := `
version: "test-1"
aircraft:
  xyz1: {wifi: true, lie_flat: false, fuel_efficient: false}
alliances:
  oneworld: [zz]
`
	cat, err := filters.LoadCatalog(strings.NewReader(raw))
	require.NoError(t, err)
	assert.True(t, cat.HasCapability("XYZ1", filters.CapWiFi))
	assert.False(t, cat.HasCapability("B789", filters.CapWiFi))
	a, ok := cat.AllianceOf("ZZ")
	require.True(t, ok)
	assert.Equal(t, filters.Oneworld, a)

	p := filters.NewPipeline(nil)
	offer := mkOffer("x", 100, seg("ZZ", "LHR", "CDG", "XYZ1", at(9, 0), 60))
	kept, _ := p.Apply([]models.Offer{offer}, &filters.FilterSet{RequireWiFi: true})
	assert.Empty(t, kept)

	p.SetCatalog(cat)
	kept, _ = p.Apply([]models.Offer{offer}, &filters.FilterSet{RequireWiFi: true})
	assert.Len(t, kept, 1)

	_, err = filters.LoadCatalog(strings.NewReader("aircraft: {}\n"))
	assert.Error(t, err, "version is required")

	_, err = filters.LoadCatalog(strings.NewReader("version: x\nalliances:\n  oneworld: [AA]\n  skyteam: [AA]\n"))
	assert.Error(t, err)
}

func TestDefaultCatalog(t *testing.T) {
	cat := filters.DefaultCatalog()
	assert.NotEmpty(t, cat.Version)
	assert.Equal(t, []string{"oneworld", "skyteam", "star_alliance"}, cat.AllianceNames())
}
