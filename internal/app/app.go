// Package app assembles the engine from configuration. Both binaries build
// their dependencies through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dharmasatrya/fareengine/internal/cache"
	"github.com/dharmasatrya/fareengine/internal/config"
	"github.com/dharmasatrya/fareengine/internal/enhanced"
	"github.com/dharmasatrya/fareengine/internal/events"
	"github.com/dharmasatrya/fareengine/internal/filters"
	"github.com/dharmasatrya/fareengine/internal/optimizer"
	"github.com/dharmasatrya/fareengine/internal/orchestrator"
	"github.com/dharmasatrya/fareengine/internal/points"
	"github.com/dharmasatrya/fareengine/internal/ratelimit"
	"github.com/dharmasatrya/fareengine/internal/session"
	"github.com/dharmasatrya/fareengine/internal/sources"
)

type App struct {
	Config       *config.Config
	Registry     *sources.Registry
	Orchestrator *orchestrator.Orchestrator
	Enhanced     *enhanced.Orchestrator
	Points       *points.Engine
	Hub          *events.Hub

	logger   zerolog.Logger
	store    cache.Store
	sessions session.Store
}

// New wires every component. Close releases the cache and session store.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	registry, err := BuildRegistry(cfg.Sources)
	if err != nil {
		return nil, err
	}
	logger.Info().Strs("sources", registry.Names()).Msg("sources registered")

	limits := make(map[string]ratelimit.RateLimitConfig)
	for _, s := range cfg.Sources {
		if s.RateLimit > 0 {
			limits[s.Name] = ratelimit.RateLimitConfig{RequestsPerSecond: s.RateLimit, BurstSize: s.Burst}
		}
	}
	limiter := ratelimit.NewSourceLimiterWithDefaults()
	limiter.Configure(limits)

	store, err := buildCacheStore(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("backend", cfg.Cache.Backend).Msg("cache ready")

	sessions, err := buildSessionStore(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	pipeline := filters.NewPipeline(nil)
	if cfg.Catalogs.Filters != "" {
		catalog, err := loadFilterCatalog(cfg.Catalogs.Filters)
		if err != nil {
			store.Close()
			sessions.Close()
			return nil, err
		}
		pipeline.SetCatalog(catalog)
	}

	engine, err := buildPointsEngine(cfg.Catalogs.Points, logger)
	if err != nil {
		store.Close()
		sessions.Close()
		return nil, err
	}

	hub := events.NewHub(64)
	sink := events.Multi{hub, events.NewLogSink(logger.With().Str("component", "events").Logger())}

	base := orchestrator.New(
		registry,
		cache.NewOfferCache(store).WithLogger(logger.With().Str("component", "cache").Logger()),
		sessions,
		orchestrator.Config{
			Timeout:        cfg.Search.Timeout,
			MaxConcurrent:  cfg.Search.MaxConcurrent,
			MaxRetries:     cfg.Search.MaxRetries,
			InitialBackoff: cfg.Search.InitialBackoff,
			CacheTTL:       cfg.Search.CacheTTL,
			SessionTTL:     cfg.Session.TTL,
			RateLimiter:    limiter,
		},
		orchestrator.WithLogger(logger.With().Str("component", "orchestrator").Logger()),
		orchestrator.WithEventSink(sink),
	)

	enh := enhanced.New(base, enhanced.Config{
		CacheTTL:      cfg.Enhanced.CacheTTL,
		AnalyticsSize: cfg.Analytics.Size,
		AnalyticsTTL:  cfg.Analytics.TTL,
	},
		enhanced.WithLogger(logger.With().Str("component", "enhanced").Logger()),
		enhanced.WithPipeline(pipeline),
		enhanced.WithOptimizer(optimizer.New(optimizer.WithLogger(logger.With().Str("component", "optimizer").Logger()))),
	)

	return &App{
		Config:       cfg,
		Registry:     registry,
		Orchestrator: base,
		Enhanced:     enh,
		Points:       engine,
		Hub:          hub,
		logger:       logger,
		store:        store,
		sessions:     sessions,
	}, nil
}

// RunCleanup removes expired sessions and analytics every interval until ctx
// is done.
func (a *App) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, retained, err := a.Enhanced.Cleanup(ctx)
			if err != nil {
				a.logger.Warn().Err(err).Msg("cleanup failed")
				continue
			}
			a.logger.Debug().Int("sessions_removed", removed).Int("analytics_retained", retained).Msg("cleanup")
		}
	}
}

func (a *App) Close() error {
	return errors.Join(a.Enhanced.Close(), a.sessions.Close(), a.store.Close())
}

// BuildRegistry turns source settings into registered adapters.
func BuildRegistry(list []config.SourceConfig) (*sources.Registry, error) {
	registry, err := sources.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, sc := range list {
		src, err := buildSource(sc)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", sc.Name, err)
		}
		if err := registry.Register(src); err != nil {
			return nil, fmt.Errorf("source %s: %w", sc.Name, err)
		}
	}
	return registry, nil
}

func buildSource(sc config.SourceConfig) (sources.Source, error) {
	switch sc.Kind {
	case "fixture":
		src, err := sources.NewFixtureSource(sc.Name)
		if err != nil {
			return nil, err
		}
		return src, nil
	case "simulated":
		caps := make([]sources.Capability, 0, len(sc.Capabilities))
		for _, c := range sc.Capabilities {
			caps = append(caps, sources.Capability(c))
		}
		return sources.NewSimulatedSource(sources.Profile{
			Name:          sc.Name,
			Carriers:      sc.Carriers,
			Aircraft:      sc.Aircraft,
			AwardPrograms: sc.AwardPrograms,
			MinLatency:    sc.MinLatency,
			MaxLatency:    sc.MaxLatency,
			FailureRate:   sc.FailureRate,
			PriceFactor:   sc.PriceFactor,
			Currency:      sc.Currency,
			Capabilities:  caps,
		}), nil
	default:
		return nil, fmt.Errorf("unknown kind %q", sc.Kind)
	}
}

func buildCacheStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "redis":
		store, err := cache.NewRedisStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		return store, nil
	case "none":
		return cache.NewNoOpStore(), nil
	default:
		return cache.NewMemoryStore(), nil
	}
}

func buildSessionStore(cfg *config.Config) (session.Store, error) {
	if cfg.Session.Backend == "sqlite" {
		store, err := session.NewSQLiteStore(cfg.Session.Path)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		return store, nil
	}
	return session.NewMemoryStore(), nil
}

func loadFilterCatalog(path string) (*filters.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open filter catalog: %w", err)
	}
	defer f.Close()
	return filters.LoadCatalog(f)
}

func buildPointsEngine(path string, logger zerolog.Logger) (*points.Engine, error) {
	var programs []points.Program
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open points catalog: %w", err)
		}
		defer f.Close()
		programs, err = points.LoadCatalog(f)
		if err != nil {
			return nil, err
		}
	}
	return points.NewEngine(programs, points.WithLogger(logger.With().Str("component", "points").Logger()))
}
