// Package ratelimit throttles calls to each upstream source independently.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a source's bucket cannot refill before the
// caller's deadline.
var ErrRateLimited = errors.New("rate limited")

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

func DefaultConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		BurstSize:         20,
	}
}

// limiter builds a bucket. A non-positive rate means unlimited.
func (c RateLimitConfig) limiter() *rate.Limiter {
	limit := rate.Limit(c.RequestsPerSecond)
	if c.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := c.BurstSize
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(limit, burst)
}

// SourceLimiter keeps one token bucket per source, keyed case-insensitively.
// Sources without an explicit limit share the default settings but get their
// own bucket.
type SourceLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	defaults RateLimitConfig
}

func NewSourceLimiter(defaults RateLimitConfig) *SourceLimiter {
	return &SourceLimiter{
		limiters: make(map[string]*rate.Limiter),
		defaults: defaults,
	}
}

func NewSourceLimiterWithDefaults() *SourceLimiter {
	return NewSourceLimiter(DefaultConfig())
}

func (p *SourceLimiter) GetLimiter(source string) *rate.Limiter {
	key := strings.ToLower(source)

	p.mu.RLock()
	l, ok := p.limiters[key]
	p.mu.RUnlock()
	if ok {
		return l
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok = p.limiters[key]; ok {
		return l
	}
	l = p.defaults.limiter()
	p.limiters[key] = l
	return l
}

// SetSourceLimit replaces the bucket for one source.
func (p *SourceLimiter) SetSourceLimit(source string, rps float64, burst int) {
	l := RateLimitConfig{RequestsPerSecond: rps, BurstSize: burst}.limiter()

	p.mu.Lock()
	p.limiters[strings.ToLower(source)] = l
	p.mu.Unlock()
}

// Configure applies SetSourceLimit for every entry.
func (p *SourceLimiter) Configure(limits map[string]RateLimitConfig) {
	for source, c := range limits {
		p.SetSourceLimit(source, c.RequestsPerSecond, c.BurstSize)
	}
}

// Wait blocks until the source may be called. It returns ctx's error when ctx
// ends first and ErrRateLimited when the wait could not finish before ctx's
// deadline.
func (p *SourceLimiter) Wait(ctx context.Context, source string) error {
	err := p.GetLimiter(source).Wait(ctx)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %s", ErrRateLimited, source)
}
