package orchestrator

import (
	"time"

	"github.com/dharmasatrya/fareengine/internal/ranking"
	"github.com/dharmasatrya/fareengine/internal/ratelimit"
)

type Config struct {
	// Timeout bounds each adapter call, retries included.
	Timeout time.Duration
	// MaxConcurrent bounds in-flight adapter calls across all searches.
	MaxConcurrent  int64
	MaxRetries     int
	InitialBackoff time.Duration
	CacheTTL       time.Duration
	SessionTTL     time.Duration
	// HealthWindow is how many recent calls per source feed the error rate.
	HealthWindow int
	RateLimiter  *ratelimit.SourceLimiter
}

func DefaultConfig() Config {
	return Config{
		Timeout:        30 * time.Second,
		MaxConcurrent:  10,
		MaxRetries:     2,
		InitialBackoff: 100 * time.Millisecond,
		CacheTTL:       5 * time.Minute,
		SessionTTL:     time.Hour,
		HealthWindow:   20,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = d.MaxConcurrent
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = d.SessionTTL
	}
	if c.HealthWindow <= 0 {
		c.HealthWindow = d.HealthWindow
	}
	return c
}

type DedupPolicy string

const (
	// DedupNone keeps every offer a source returned.
	DedupNone DedupPolicy = "none"
	// DedupByItinerary keeps the cheapest offer per physical itinerary.
	DedupByItinerary DedupPolicy = "itinerary"
)

type Options struct {
	Dedup     DedupPolicy       `json:"dedup,omitempty"`
	SortBy    ranking.SortField `json:"sort_by,omitempty"`
	SortOrder ranking.SortOrder `json:"sort_order,omitempty"`
	SkipCache bool              `json:"skip_cache,omitempty"`
}
