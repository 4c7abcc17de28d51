// Package enhanced layers filtering, route optimization and per-search
// analytics on top of the base orchestrator.
package enhanced

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dharmasatrya/fareengine/internal/cache"
	"github.com/dharmasatrya/fareengine/internal/filters"
	"github.com/dharmasatrya/fareengine/internal/models"
	"github.com/dharmasatrya/fareengine/internal/optimizer"
	"github.com/dharmasatrya/fareengine/internal/orchestrator"
	"github.com/dharmasatrya/fareengine/internal/ranking"
)

type Config struct {
	CacheTTL      time.Duration
	AnalyticsSize int
	AnalyticsTTL  time.Duration
}

func DefaultConfig() Config {
	return Config{
		CacheTTL:      30 * time.Minute,
		AnalyticsSize: 1000,
		AnalyticsTTL:  time.Hour,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.AnalyticsSize <= 0 {
		c.AnalyticsSize = d.AnalyticsSize
	}
	if c.AnalyticsTTL <= 0 {
		c.AnalyticsTTL = d.AnalyticsTTL
	}
	return c
}

type Options struct {
	Search       orchestrator.Options `json:"search"`
	Filters      *filters.FilterSet   `json:"filters,omitempty"`
	Optimize     bool                 `json:"optimize,omitempty"`
	Optimization optimizer.Options    `json:"optimization"`
}

type Result struct {
	SessionID         string                    `json:"session_id"`
	Status            models.SessionStatus      `json:"status"`
	Offers            []models.Offer            `json:"offers"`
	TotalOffers       int                       `json:"total_offers"`
	Elapsed           time.Duration             `json:"elapsed"`
	SourcesQueried    int                       `json:"sources_queried"`
	SourcesSucceeded  int                       `json:"sources_succeeded"`
	CacheHit          bool                      `json:"cache_hit"`
	DuplicatesDropped int                       `json:"duplicates_dropped"`
	Errors            []models.SourceError      `json:"errors,omitempty"`
	FilterResult      *filters.FilterResult     `json:"filter_result,omitempty"`
	FilterOptions     filters.Options           `json:"filter_options"`
	Recommendations   []filters.Recommendation  `json:"recommendations,omitempty"`
	OptimizedRoute    *optimizer.OptimizedRoute `json:"optimized_route,omitempty"`
}

// Analytics summarizes one search for later inspection.
type Analytics struct {
	SessionID         string        `json:"session_id"`
	Origin            string        `json:"origin"`
	Destination       string        `json:"destination"`
	SourcesQueried    int           `json:"sources_queried"`
	SourcesSucceeded  int           `json:"sources_succeeded"`
	SourceErrors      int           `json:"source_errors"`
	TotalOffers       int           `json:"total_offers"`
	FilteredOffers    int           `json:"filtered_offers"`
	CacheHit          bool          `json:"cache_hit"`
	Elapsed           time.Duration `json:"elapsed"`
	CheapestPrice     float64       `json:"cheapest_price"`
	OptimizationScore float64       `json:"optimization_score,omitempty"`
	Savings           float64       `json:"savings,omitempty"`
	RecordedAt        time.Time     `json:"recorded_at"`
}

type Orchestrator struct {
	base      *orchestrator.Orchestrator
	store     cache.Store
	pipeline  *filters.Pipeline
	optimizer *optimizer.Optimizer
	analytics *expirable.LRU[string, Analytics]
	config    Config
	logger    zerolog.Logger
	now       func() time.Time
}

type Option func(*Orchestrator)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithPipeline(p *filters.Pipeline) Option {
	return func(o *Orchestrator) { o.pipeline = p }
}

func WithOptimizer(opt *optimizer.Optimizer) Option {
	return func(o *Orchestrator) { o.optimizer = opt }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New shares the base orchestrator's cache store for whole results, under
// their own key namespace.
func New(base *orchestrator.Orchestrator, config Config, opts ...Option) *Orchestrator {
	config = config.withDefaults()
	o := &Orchestrator{
		base:      base,
		store:     base.Cache().Store(),
		pipeline:  filters.NewPipeline(nil),
		optimizer: optimizer.New(),
		analytics: expirable.NewLRU[string, Analytics](config.AnalyticsSize, nil, config.AnalyticsTTL),
		config:    config,
		logger:    log.With().Str("component", "enhanced_orchestrator").Logger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Base() *orchestrator.Orchestrator {
	return o.base
}

func (o *Orchestrator) Pipeline() *filters.Pipeline {
	return o.pipeline
}

func (o *Orchestrator) Optimizer() *optimizer.Optimizer {
	return o.optimizer
}

// Search runs the base search, then filters, sorts and optimizes a copy of
// its offers. The stored session is never modified by these stages.
func (o *Orchestrator) Search(ctx context.Context, criteria models.SearchCriteria, sourceIDs []string, opts Options) (*Result, error) {
	started := o.now()
	c := criteria.Normalize()

	var key string
	if c.Validate() == nil {
		key = resultKey(c, sourceIDs, opts)
		if !opts.Search.SkipCache {
			if cached, ok := o.cached(ctx, key); ok {
				cached.CacheHit = true
				cached.Elapsed = o.now().Sub(started)
				o.record(c, cached)
				return cached, nil
			}
		}
	}

	res, err := o.base.Search(ctx, c, sourceIDs, opts.Search)
	if err != nil {
		return nil, err
	}

	result := &Result{
		SessionID:         res.SessionID,
		Status:            res.Status,
		TotalOffers:       res.TotalOffers,
		Elapsed:           res.Elapsed,
		SourcesQueried:    res.SourcesQueried,
		SourcesSucceeded:  res.SourcesSucceeded,
		CacheHit:          res.CacheHit,
		DuplicatesDropped: res.DuplicatesDropped,
		Errors:            res.Errors,
	}
	if res.Status != models.StatusCompleted {
		result.Offers = []models.Offer{}
		return result, nil
	}

	offers := models.CloneOffers(res.Offers)
	if opts.Filters != nil {
		filtered, fr := o.pipeline.Apply(offers, opts.Filters)
		offers = filtered
		result.FilterResult = &fr
	}
	offers = ranking.Sort(offers, opts.Search.SortBy, opts.Search.SortOrder)
	result.Offers = offers

	if opts.Optimize {
		route := o.optimizer.OptimizeRoute(c, offers, opts.Optimization)
		result.OptimizedRoute = &route
	}
	result.FilterOptions = o.pipeline.AvailableOptions(res.Offers)
	result.Recommendations = o.pipeline.Recommend(c, res.Offers)
	result.Elapsed = o.now().Sub(started)

	o.record(c, result)
	if key != "" && res.SourcesSucceeded > 0 && len(res.Errors) == 0 {
		o.save(ctx, key, result)
	}
	return result, nil
}

// Analytics returns the summary recorded for a search while it is retained.
func (o *Orchestrator) Analytics(sessionID string) (Analytics, bool) {
	return o.analytics.Get(sessionID)
}

// RecentAnalytics lists retained summaries, newest first.
func (o *Orchestrator) RecentAnalytics() []Analytics {
	out := o.analytics.Values()
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	return out
}

// Cleanup deletes expired sessions and reports how many analytics entries
// are still retained. Analytics entries expire on their own.
func (o *Orchestrator) Cleanup(ctx context.Context) (removed int, retained int, err error) {
	removed, err = o.base.Cleanup(ctx)
	return removed, o.analytics.Len(), err
}

// Close drops all analytics. The orchestrator must not be used afterwards.
func (o *Orchestrator) Close() error {
	o.analytics.Purge()
	return nil
}

func (o *Orchestrator) record(c models.SearchCriteria, r *Result) {
	a := Analytics{
		SessionID:        r.SessionID,
		Origin:           c.Origin,
		Destination:      c.Destination,
		SourcesQueried:   r.SourcesQueried,
		SourcesSucceeded: r.SourcesSucceeded,
		SourceErrors:     len(r.Errors),
		TotalOffers:      r.TotalOffers,
		FilteredOffers:   len(r.Offers),
		CacheHit:         r.CacheHit,
		Elapsed:          r.Elapsed,
		RecordedAt:       o.now().UTC(),
	}
	for i, off := range r.Offers {
		if i == 0 || off.Pricing.TotalPrice < a.CheapestPrice {
			a.CheapestPrice = off.Pricing.TotalPrice
		}
	}
	if r.OptimizedRoute != nil {
		a.OptimizationScore = r.OptimizedRoute.OptimizationScore
		a.Savings = r.OptimizedRoute.Savings
	}
	o.analytics.Add(r.SessionID, a)
}

func (o *Orchestrator) cached(ctx context.Context, key string) (*Result, bool) {
	data, found, err := o.store.Get(ctx, key)
	if err != nil {
		o.logger.Warn().Err(err).Str("key", key).Msg("enhanced cache read failed, treating as miss")
		return nil, false
	}
	if !found {
		return nil, false
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		o.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable enhanced cache entry")
		return nil, false
	}
	return &r, true
}

func (o *Orchestrator) save(ctx context.Context, key string, r *Result) {
	data, err := json.Marshal(r)
	if err != nil {
		o.logger.Warn().Err(err).Str("key", key).Msg("enhanced cache encode failed")
		return
	}
	if err := o.store.Set(ctx, key, data, o.config.CacheTTL); err != nil {
		o.logger.Warn().Err(err).Str("key", key).Msg("enhanced cache write failed")
	}
}

func resultKey(c models.SearchCriteria, sourceIDs []string, opts Options) string {
	ids := make([]string, len(sourceIDs))
	for i, id := range sourceIDs {
		ids[i] = strings.ToLower(id)
	}
	sort.Strings(ids)
	opts.Search.SkipCache = false
	return cache.EnhancedKey(struct {
		Source  string
		Sources []string
		Options Options
	}{
		Source:  cache.SourceKey("enhanced", c),
		Sources: ids,
		Options: opts,
	})
}
