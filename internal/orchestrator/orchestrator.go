package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/dharmasatrya/fareengine/internal/cache"
	"github.com/dharmasatrya/fareengine/internal/events"
	"github.com/dharmasatrya/fareengine/internal/models"
	"github.com/dharmasatrya/fareengine/internal/ranking"
	"github.com/dharmasatrya/fareengine/internal/session"
	"github.com/dharmasatrya/fareengine/internal/sources"
)

var errSearchStopped = errors.New("search stopped before the source was called")

// Orchestrator fans a search out to the registered sources, tolerating
// per-source failures, and records the outcome as a search session.
type Orchestrator struct {
	registry *sources.Registry
	cache    *cache.OfferCache
	sessions session.Store
	sink     events.Sink
	config   Config
	logger   zerolog.Logger
	now      func() time.Time

	// calls is shared by every search so the bound is global.
	calls    *semaphore.Weighted
	inFlight atomic.Int64
	health   *sourceHealth

	mu     sync.Mutex
	active map[string]*searchState
}

type Option func(*Orchestrator)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithEventSink(sink events.Sink) Option {
	return func(o *Orchestrator) {
		if sink != nil {
			o.sink = sink
		}
	}
}

func New(registry *sources.Registry, offerCache *cache.OfferCache, sessions session.Store, config Config, opts ...Option) *Orchestrator {
	config = config.withDefaults()
	if offerCache == nil {
		offerCache = cache.NewOfferCache(nil)
	}
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}

	o := &Orchestrator{
		registry: registry,
		cache:    offerCache,
		sessions: sessions,
		sink:     events.NopSink{},
		config:   config,
		logger:   log.With().Str("component", "orchestrator").Logger(),
		now:      time.Now,
		calls:    semaphore.NewWeighted(config.MaxConcurrent),
		health:   newSourceHealth(config.HealthWindow),
		active:   make(map[string]*searchState),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type Result struct {
	SessionID         string               `json:"session_id"`
	Status            models.SessionStatus `json:"status"`
	Offers            []models.Offer       `json:"offers"`
	TotalOffers       int                  `json:"total_offers"`
	Elapsed           time.Duration        `json:"elapsed"`
	SourcesQueried    int                  `json:"sources_queried"`
	SourcesSucceeded  int                  `json:"sources_succeeded"`
	CachedSources     int                  `json:"cached_sources"`
	CacheHit          bool                 `json:"cache_hit"`
	DuplicatesDropped int                  `json:"duplicates_dropped"`
	Errors            []models.SourceError `json:"errors,omitempty"`
}

type sourceResult struct {
	source  string
	offers  []models.Offer
	err     error
	cached  bool
	elapsed time.Duration
}

type plan struct {
	state    *searchState
	criteria models.SearchCriteria
	sources  []sources.Source
	unknown  []string
	opts     Options
}

// Search runs a search to completion. Source failures are reported in the
// result; only invalid criteria or an unusable session store fail the call.
func (o *Orchestrator) Search(ctx context.Context, criteria models.SearchCriteria, sourceIDs []string, opts Options) (*Result, error) {
	p, err := o.begin(ctx, criteria, sourceIDs, opts)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, p), nil
}

// StartSearch validates and registers the search, then runs it in the
// background. The caller follows it through GetProgress, the event sink and
// the session store.
func (o *Orchestrator) StartSearch(ctx context.Context, criteria models.SearchCriteria, sourceIDs []string, opts Options) (string, error) {
	p, err := o.begin(ctx, criteria, sourceIDs, opts)
	if err != nil {
		return "", err
	}
	go o.run(context.WithoutCancel(ctx), p)
	return p.state.id, nil
}

func (o *Orchestrator) begin(ctx context.Context, criteria models.SearchCriteria, sourceIDs []string, opts Options) (*plan, error) {
	started := o.now()
	c := criteria.Normalize()
	id := uuid.NewString()

	if err := c.Validate(); err != nil {
		o.recordFailedSession(ctx, id, c, started)
		o.sink.Publish(id, events.SearchFailed, map[string]string{"error": err.Error()})
		return nil, fmt.Errorf("invalid search criteria: %w", err)
	}

	found, unknown := o.registry.Resolve(sourceIDs)
	total := len(found) + len(unknown)

	sess := models.SearchSession{
		ID:        id,
		Criteria:  c,
		Status:    models.StatusSearching,
		CreatedAt: started.UTC(),
		ExpiresAt: started.Add(o.config.SessionTTL).UTC(),
	}
	if err := o.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create search session: %w", err)
	}

	st := newSearchState(id, total, started, o.config.Timeout)
	o.mu.Lock()
	o.active[id] = st
	o.mu.Unlock()

	o.logger.Info().
		Str("session_id", id).
		Str("origin", c.Origin).
		Str("destination", c.Destination).
		Int("sources", total).
		Msg("search started")
	o.sink.Publish(id, events.SearchStarted, st.snapshot())

	return &plan{state: st, criteria: c, sources: found, unknown: unknown, opts: opts}, nil
}

func (o *Orchestrator) run(ctx context.Context, p *plan) *Result {
	st := p.state
	queueCtx, cancelQueue := context.WithCancel(ctx)
	defer cancelQueue()
	st.setCancelQueue(cancelQueue)

	resultCh := make(chan sourceResult, len(p.sources))
	for _, s := range p.sources {
		go func(src sources.Source) {
			resultCh <- o.query(ctx, queueCtx, st, src, p.criteria, p.opts)
		}(s)
	}

	for _, id := range p.unknown {
		o.recordSourceFailure(st, id, sources.ErrNotRegistered)
	}

	var (
		collected []models.Offer
		succeeded int
		cached    int
	)

	for pending := len(p.sources); pending > 0; pending-- {
		select {
		case r := <-resultCh:
			if r.err != nil {
				o.recordSourceFailure(st, r.source, r.err)
				continue
			}
			succeeded++
			if r.cached {
				cached++
			}
			collected = append(collected, r.offers...)
			snap := st.sourceCompleted(o.now())
			o.sink.Publish(st.id, events.SourceCompleted, map[string]any{
				"source":   r.source,
				"offers":   len(r.offers),
				"cached":   r.cached,
				"progress": snap,
			})
		case <-st.stop:
			return o.cancelledResult(st, len(p.sources))
		case <-ctx.Done():
			o.Cancel(context.WithoutCancel(ctx), st.id)
			return o.cancelledResult(st, len(p.sources))
		}
	}

	if !st.finish(models.StatusCompleted) {
		return o.cancelledResult(st, len(p.sources))
	}

	offers, dropped := dedupe(collected, p.opts.Dedup)
	offers = ranking.Sort(offers, p.opts.SortBy, p.opts.SortOrder)
	errs := st.errors()

	completed := models.StatusCompleted
	if _, err := o.sessions.Update(ctx, st.id, models.SessionPatch{
		AppendOffers: offers,
		Status:       &completed,
	}); err != nil {
		o.logger.Error().Err(err).Str("session_id", st.id).Msg("failed to persist search results")
	}
	o.removeActive(st.id)

	result := &Result{
		SessionID:         st.id,
		Status:            models.StatusCompleted,
		Offers:            offers,
		TotalOffers:       len(offers),
		Elapsed:           o.now().Sub(st.started),
		SourcesQueried:    len(p.sources) + len(p.unknown),
		SourcesSucceeded:  succeeded,
		CachedSources:     cached,
		CacheHit:          succeeded > 0 && cached == succeeded,
		DuplicatesDropped: dropped,
		Errors:            errs,
	}

	o.logger.Info().
		Str("session_id", st.id).
		Int("offers", result.TotalOffers).
		Int("sources_succeeded", succeeded).
		Int("sources_failed", len(errs)).
		Dur("elapsed", result.Elapsed).
		Msg("search completed")
	o.sink.Publish(st.id, events.SearchCompleted, map[string]any{
		"total_offers": result.TotalOffers,
		"errors":       errs,
	})

	if result.Offers == nil {
		result.Offers = []models.Offer{}
	}
	return result
}

// query serves one source from the cache or through a rate-limited,
// retried call bounded by the per-call timeout.
func (o *Orchestrator) query(ctx, queueCtx context.Context, st *searchState, src sources.Source, c models.SearchCriteria, opts Options) sourceResult {
	name := src.Name()
	started := o.now()
	key := cache.SourceKey(name, c)

	if !opts.SkipCache {
		if offers, found := o.cache.Get(ctx, key); found {
			return sourceResult{source: name, offers: offers, cached: true}
		}
	}

	if c.IsRoundTrip() && !sources.Supports(src, sources.CapRoundTrip) {
		return sourceResult{source: name, err: sources.ErrUnsupportedQuery}
	}

	if err := o.calls.Acquire(queueCtx, 1); err != nil {
		return sourceResult{source: name, err: errSearchStopped}
	}
	defer o.calls.Release(1)

	if st.stopped() {
		return sourceResult{source: name, err: errSearchStopped}
	}
	if o.config.RateLimiter != nil {
		if err := o.config.RateLimiter.Wait(queueCtx, name); err != nil {
			return sourceResult{source: name, err: err}
		}
	}

	o.inFlight.Add(1)
	defer o.inFlight.Add(-1)

	callCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	offers, err := o.callWithDeadline(callCtx, src, c)
	o.health.record(name, err == nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s", o.config.Timeout)
		}
		return sourceResult{source: name, err: err, elapsed: o.now().Sub(started)}
	}

	for i := range offers {
		if offers[i].Source == "" {
			offers[i].Source = name
		}
	}
	o.cache.Set(ctx, key, offers, o.config.CacheTTL)
	return sourceResult{source: name, offers: offers, elapsed: o.now().Sub(started)}
}

type callResult struct {
	offers []models.Offer
	err    error
}

// callWithDeadline returns when ctx ends even if the source ignores it.
// Offers that arrive after the deadline are discarded.
func (o *Orchestrator) callWithDeadline(ctx context.Context, src sources.Source, c models.SearchCriteria) ([]models.Offer, error) {
	done := make(chan callResult, 1)
	go func() {
		offers, err := o.searchWithRetry(ctx, src, c)
		done <- callResult{offers: offers, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return r.offers, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (o *Orchestrator) searchWithRetry(ctx context.Context, src sources.Source, c models.SearchCriteria) ([]models.Offer, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = o.config.InitialBackoff
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(o.config.MaxRetries)), ctx)

	var offers []models.Offer
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		result, err := src.Search(ctx, c)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			o.logger.Debug().Err(err).Str("source", src.Name()).Int("attempt", attempt).Msg("source attempt failed")
			return err
		}
		offers = result
		return nil
	}, policy)
	return offers, err
}

// GetProgress returns the live progress of a running search. Finished
// searches have no progress record.
func (o *Orchestrator) GetProgress(sessionID string) (models.SearchProgress, bool) {
	o.mu.Lock()
	st, ok := o.active[sessionID]
	o.mu.Unlock()
	if !ok {
		return models.SearchProgress{}, false
	}
	return st.snapshot(), true
}

// Cancel stops result aggregation for a running search and marks its
// session cancelled. Calls already in flight run to completion and their
// results are discarded. It returns false for finished or unknown searches.
func (o *Orchestrator) Cancel(ctx context.Context, sessionID string) bool {
	o.mu.Lock()
	st, ok := o.active[sessionID]
	o.mu.Unlock()
	if !ok {
		return false
	}
	if !st.finish(models.StatusCancelled) {
		return false
	}

	cancelled := models.StatusCancelled
	if _, err := o.sessions.Update(ctx, sessionID, models.SessionPatch{Status: &cancelled}); err != nil {
		o.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to mark session cancelled")
	}
	o.removeActive(sessionID)

	o.logger.Info().Str("session_id", sessionID).Msg("search cancelled")
	o.sink.Publish(sessionID, events.SearchCancelled, nil)
	return true
}

// Session returns the stored session.
func (o *Orchestrator) Session(ctx context.Context, sessionID string) (*models.SearchSession, error) {
	return o.sessions.Get(ctx, sessionID)
}

// Cleanup deletes expired sessions from the store.
func (o *Orchestrator) Cleanup(ctx context.Context) (int, error) {
	removed, err := o.sessions.DeleteExpired(ctx, o.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	if removed > 0 {
		o.logger.Info().Int("removed", removed).Msg("expired sessions deleted")
	}
	return removed, nil
}

func (o *Orchestrator) Registry() *sources.Registry {
	return o.registry
}

func (o *Orchestrator) Cache() *cache.OfferCache {
	return o.cache
}

func (o *Orchestrator) cancelledResult(st *searchState, queried int) *Result {
	return &Result{
		SessionID:      st.id,
		Status:         models.StatusCancelled,
		Offers:         []models.Offer{},
		Elapsed:        o.now().Sub(st.started),
		SourcesQueried: queried,
		Errors:         st.errors(),
	}
}

func (o *Orchestrator) recordSourceFailure(st *searchState, source string, err error) {
	o.logger.Warn().Str("session_id", st.id).Str("source", source).Err(err).Msg("source failed")
	snap := st.sourceFailed(models.SourceError{Source: source, Message: err.Error()}, o.now())
	o.sink.Publish(st.id, events.SourceFailed, map[string]any{
		"source":   source,
		"error":    err.Error(),
		"progress": snap,
	})
}

func (o *Orchestrator) recordFailedSession(ctx context.Context, id string, c models.SearchCriteria, at time.Time) {
	sess := models.SearchSession{
		ID:        id,
		Criteria:  c,
		Status:    models.StatusFailed,
		CreatedAt: at.UTC(),
		ExpiresAt: at.Add(o.config.SessionTTL).UTC(),
	}
	if err := o.sessions.Create(ctx, sess); err != nil {
		o.logger.Warn().Err(err).Str("session_id", id).Msg("failed to record rejected search")
	}
}

func (o *Orchestrator) removeActive(id string) {
	o.mu.Lock()
	delete(o.active, id)
	o.mu.Unlock()
}

func (o *Orchestrator) activeCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.active)
}
