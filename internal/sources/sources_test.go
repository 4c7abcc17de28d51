package sources_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/fareengine/internal/models"
	"github.com/dharmasatrya/fareengine/internal/sources"
)

func criteria() models.SearchCriteria {
	return models.SearchCriteria{
		Origin:        "JFK",
		Destination:   "LHR",
		DepartureDate: time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC),
		Passengers:    models.Passengers{Adults: 1},
		CabinClass:    models.CabinEconomy,
	}
}

func TestRegistry_Resolve(t *testing.T) {
	a := sources.NewSimulatedSource(sources.Profile{Name: "alpha", Carriers: []string{"BA"}})
	b := sources.NewSimulatedSource(sources.Profile{Name: "beta", Carriers: []string{"AA"}})
	reg, err := sources.NewRegistry(a, b)
	require.NoError(t, err)

	all, unknown := reg.Resolve(nil)
	assert.Len(t, all, 2)
	assert.Empty(t, unknown)
	assert.Equal(t, []string{"alpha", "beta"}, reg.Names())

	found, unknown := reg.Resolve([]string{"BETA", "beta", "gamma"})
	require.Len(t, found, 1)
	assert.Equal(t, "beta", found[0].Name())
	assert.Equal(t, []string{"gamma"}, unknown)

	err = reg.Register(sources.NewSimulatedSource(sources.Profile{Name: "alpha"}))
	assert.True(t, errors.Is(err, sources.ErrDuplicateSource))
}

func TestRegistry_Supporting(t *testing.T) {
	oneWay := sources.NewSimulatedSource(sources.Profile{
		Name:         "oneway",
		Capabilities: []sources.Capability{sources.CapOneWay},
	})
	full := sources.NewSimulatedSource(sources.Profile{Name: "full"})
	reg, err := sources.NewRegistry(oneWay, full)
	require.NoError(t, err)

	rt := reg.Supporting(sources.CapRoundTrip)
	require.Len(t, rt, 1)
	assert.Equal(t, "full", rt[0].Name())
}

func TestSimulatedSource_Deterministic(t *testing.T) {
	src := sources.NewSimulatedSource(sources.Profile{
		Name:          "alpha",
		Carriers:      []string{"BA", "AA"},
		AwardPrograms: []string{"british_airways"},
	})

	first, err := src.Search(context.Background(), criteria())
	require.NoError(t, err)
	second, err := src.Search(context.Background(), criteria())
	require.NoError(t, err)

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
	for _, o := range first {
		assert.True(t, o.Pricing.Valid(), "total must equal cash+taxes+fees")
		assert.Equal(t, "JFK", o.Origin())
		assert.Equal(t, "LHR", o.Destination())
		assert.Equal(t, len(o.Segments)-1, o.LayoverCount)
	}
}

func TestSimulatedSource_FailsAndHonoursContext(t *testing.T) {
	failing := sources.NewSimulatedSource(sources.Profile{Name: "down", Carriers: []string{"BA"}, FailureRate: 1})
	_, err := failing.Search(context.Background(), criteria())
	assert.True(t, errors.Is(err, sources.ErrUnavailable))

	var srcErr *sources.SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, "down", srcErr.Source)

	slow := sources.NewSimulatedSource(sources.Profile{Name: "slow", Carriers: []string{"BA"}, MinLatency: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = slow.Search(ctx, criteria())
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestFixtureSource_Search(t *testing.T) {
	src, err := sources.NewFixtureSource("sample")
	require.NoError(t, err)

	offers, err := src.Search(context.Background(), criteria())
	require.NoError(t, err)
	assert.Len(t, offers, 4)

	for _, o := range offers {
		assert.True(t, o.Pricing.Valid())
		assert.Equal(t, "sample", o.Source)
	}

	byID := map[string]models.Offer{}
	for _, o := range offers {
		byID[o.ID] = o
	}
	direct := byID["sample-SMP-1001"]
	assert.InDelta(t, 643.4, direct.Pricing.TotalPrice, 0.001)
	assert.Equal(t, 430, direct.TotalDuration)
	assert.Equal(t, "B77W", direct.Segments[0].Aircraft)

	connecting := byID["sample-SMP-1003"]
	assert.Equal(t, 1, connecting.LayoverCount)
	require.NotNil(t, connecting.LayoverDuration)
	assert.Equal(t, 165, *connecting.LayoverDuration)
}

func TestFixtureSource_RoundTripAndPassengers(t *testing.T) {
	src, err := sources.NewFixtureSource("sample")
	require.NoError(t, err)

	c := criteria()
	ret := time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC)
	c.ReturnDate = &ret
	c.Passengers = models.Passengers{Adults: 2}

	offers, err := src.Search(context.Background(), c)
	require.NoError(t, err)
	assert.Len(t, offers, 5)

	for _, o := range offers {
		if o.ID == "sample-SMP-2001" {
			assert.InDelta(t, 1230.0, o.Pricing.TotalPrice, 0.001)
		}
	}
}
