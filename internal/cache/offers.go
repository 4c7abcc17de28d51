package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dharmasatrya/fareengine/internal/models"
)

const DefaultSourceTTL = 5 * time.Minute

type Stats struct {
	Count      int   `json:"count"`
	MemoryUsed int64 `json:"memory_used_bytes"`
}

// OfferCache memoizes per-source offer lists. Backend failures are logged and
// reported to callers as misses or no-ops.
type OfferCache struct {
	store  Store
	logger zerolog.Logger
}

func NewOfferCache(store Store) *OfferCache {
	if store == nil {
		store = NewNoOpStore()
	}
	return &OfferCache{
		store:  store,
		logger: log.With().Str("component", "offer_cache").Logger(),
	}
}

func (c *OfferCache) WithLogger(logger zerolog.Logger) *OfferCache {
	c.logger = logger
	return c
}

func (c *OfferCache) Store() Store {
	return c.store
}

func (c *OfferCache) Get(ctx context.Context, key string) ([]models.Offer, bool) {
	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		return nil, false
	}
	if !found {
		return nil, false
	}

	var offers []models.Offer
	if err := json.Unmarshal(data, &offers); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		return nil, false
	}
	return offers, true
}

func (c *OfferCache) Set(ctx context.Context, key string, offers []models.Offer, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultSourceTTL
	}
	data, err := json.Marshal(offers)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := c.store.Set(ctx, key, data, ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (c *OfferCache) Delete(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache delete failed")
	}
}

// InvalidateRoute removes every per-source entry holding an offer between
// origin and destination. It scans the whole namespace and is meant for
// manual cache busting.
func (c *OfferCache) InvalidateRoute(ctx context.Context, origin, destination string) (int, error) {
	keys, err := c.store.Keys(ctx, SourcePattern)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		offers, found := c.Get(ctx, key)
		if !found || !referencesRoute(offers, origin, destination) {
			continue
		}
		if err := c.store.Delete(ctx, key); err != nil {
			return removed, err
		}
		removed++
	}

	c.logger.Info().
		Str("origin", origin).
		Str("destination", destination).
		Int("removed", removed).
		Msg("route invalidated")
	return removed, nil
}

func (c *OfferCache) Stats(ctx context.Context) (Stats, error) {
	keys, err := c.store.Keys(ctx, SourcePattern)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for _, key := range keys {
		data, found, err := c.store.Get(ctx, key)
		if err != nil {
			return Stats{}, err
		}
		if !found {
			continue
		}
		stats.Count++
		stats.MemoryUsed += int64(len(data))
	}
	return stats, nil
}

func (c *OfferCache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

func referencesRoute(offers []models.Offer, origin, destination string) bool {
	for _, o := range offers {
		if o.Serves(origin, destination) {
			return true
		}
	}
	return false
}
