package airports_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/fareengine/internal/airports"
)

func TestDistanceMiles(t *testing.T) {
	d, ok := airports.DistanceMiles("JFK", "EWR")
	require.True(t, ok)
	assert.InDelta(t, 21, d, 3)

	d, ok = airports.DistanceMiles("JFK", "LHR")
	require.True(t, ok)
	assert.InDelta(t, 3450, d, 30)

	_, ok = airports.DistanceMiles("JFK", "XXX")
	assert.False(t, ok)
}

func TestNearby(t *testing.T) {
	near := airports.Nearby("JFK", 50)
	codes := make([]string, len(near))
	for i, a := range near {
		codes[i] = a.Code
	}
	assert.Contains(t, codes, "EWR")
	assert.Contains(t, codes, "LGA")
	assert.NotContains(t, codes, "JFK")
	assert.NotContains(t, codes, "BOS")

	assert.Empty(t, airports.Nearby("XXX", 500))
}

func TestParseTimeWithOffset(t *testing.T) {
	withOffset, err := airports.ParseTimeWithOffset("2026-06-12T08:30:00+07:00", "")
	require.NoError(t, err)
	assert.Equal(t, 1, withOffset.UTC().Hour())
	assert.Equal(t, 30, withOffset.UTC().Minute())

	local, err := airports.ParseTimeWithOffset("2026-01-15 09:00", "LHR")
	require.NoError(t, err)
	assert.True(t, local.Equal(time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)))

	_, err = airports.ParseTimeWithOffset("tomorrow", "JFK")
	assert.Error(t, err)
}

func TestInLocal(t *testing.T) {
	utc := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 7, airports.InLocal(utc, "JFK").Hour())
	assert.Equal(t, 12, airports.InLocal(utc, "ZZZ").Hour())
}
