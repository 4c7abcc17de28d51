package orchestrator

import (
	"context"
	"sort"
	"sync"
	"time"
)

type HealthStatus string

const (
	Healthy   HealthStatus = "healthy"
	Degraded  HealthStatus = "degraded"
	Unhealthy HealthStatus = "unhealthy"
)

const failingErrorRate = 0.5

type HealthReport struct {
	Status           HealthStatus       `json:"status"`
	ActiveSearches   int                `json:"active_searches"`
	InFlightCalls    int64              `json:"in_flight_calls"`
	CacheReachable   bool               `json:"cache_reachable"`
	SourceErrorRates map[string]float64 `json:"source_error_rates"`
	FailingSources   []string           `json:"failing_sources,omitempty"`
	CheckedAt        time.Time          `json:"checked_at"`
}

// sourceHealth keeps the outcome of the last few calls per source.
type sourceHealth struct {
	mu       sync.Mutex
	window   int
	outcomes map[string][]bool
}

func newSourceHealth(window int) *sourceHealth {
	return &sourceHealth{window: window, outcomes: make(map[string][]bool)}
}

func (h *sourceHealth) record(source string, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	o := append(h.outcomes[source], ok)
	if len(o) > h.window {
		o = o[len(o)-h.window:]
	}
	h.outcomes[source] = o
}

func (h *sourceHealth) errorRates() map[string]float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	rates := make(map[string]float64, len(h.outcomes))
	for source, outcomes := range h.outcomes {
		failed := 0
		for _, ok := range outcomes {
			if !ok {
				failed++
			}
		}
		rates[source] = float64(failed) / float64(len(outcomes))
	}
	return rates
}

// HealthCheck is unhealthy only when the cache cannot be reached. Failing
// sources or a saturated call budget make it degraded.
func (o *Orchestrator) HealthCheck(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:           Healthy,
		ActiveSearches:   o.activeCount(),
		InFlightCalls:    o.inFlight.Load(),
		CacheReachable:   true,
		SourceErrorRates: o.health.errorRates(),
		CheckedAt:        o.now().UTC(),
	}

	for source, rate := range report.SourceErrorRates {
		if rate >= failingErrorRate {
			report.FailingSources = append(report.FailingSources, source)
		}
	}
	sort.Strings(report.FailingSources)

	if len(report.FailingSources) > 0 || report.InFlightCalls >= o.config.MaxConcurrent {
		report.Status = Degraded
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := o.cache.Ping(pingCtx); err != nil {
		o.logger.Error().Err(err).Msg("cache unreachable")
		report.CacheReachable = false
		report.Status = Unhealthy
	}

	return report
}
