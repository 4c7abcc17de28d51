package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/dharmasatrya/fareengine/internal/ratelimit"
)

func TestSourceLimiter_SharedPerSource(t *testing.T) {
	l := ratelimit.NewSourceLimiterWithDefaults()
	assert.Same(t, l.GetLimiter("alpha"), l.GetLimiter("ALPHA"))
	assert.NotSame(t, l.GetLimiter("alpha"), l.GetLimiter("beta"))
}

func TestSourceLimiter_WaitRespectsDeadline(t *testing.T) {
	l := ratelimit.NewSourceLimiter(ratelimit.RateLimitConfig{RequestsPerSecond: 0.01, BurstSize: 1})
	require.NoError(t, l.Wait(context.Background(), "alpha"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx, "alpha"), ratelimit.ErrRateLimited)
}

func TestSourceLimiter_WaitCancelled(t *testing.T) {
	l := ratelimit.NewSourceLimiterWithDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx, "alpha"), context.Canceled)
}

func TestSourceLimiter_Override(t *testing.T) {
	l := ratelimit.NewSourceLimiterWithDefaults()
	l.SetSourceLimit("alpha", 2, 3)
	assert.Equal(t, 3, l.GetLimiter("alpha").Burst())
	assert.Equal(t, 20, l.GetLimiter("beta").Burst())
}

func TestSourceLimiter_Configure(t *testing.T) {
	l := ratelimit.NewSourceLimiterWithDefaults()
	l.Configure(map[string]ratelimit.RateLimitConfig{
		"Alpha": {RequestsPerSecond: 5, BurstSize: 7},
		"beta":  {RequestsPerSecond: 0, BurstSize: 0},
	})
	assert.Equal(t, 7, l.GetLimiter("alpha").Burst())
	assert.Equal(t, rate.Inf, l.GetLimiter("beta").Limit())
	assert.Equal(t, 1, l.GetLimiter("beta").Burst())
}
