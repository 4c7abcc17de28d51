// Package config loads service settings from defaults, an optional YAML file
// and FARE_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "FARE"

// Load reads path when it is not empty. Nested keys map to environment
// variables with dots replaced by underscores, e.g. FARE_SEARCH_TIMEOUT.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("env", d.Env)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("redis.host", d.Redis.Host)
	v.SetDefault("redis.port", d.Redis.Port)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("search.timeout", d.Search.Timeout)
	v.SetDefault("search.max_concurrent", d.Search.MaxConcurrent)
	v.SetDefault("search.cache_ttl", d.Search.CacheTTL)
	v.SetDefault("search.max_retries", d.Search.MaxRetries)
	v.SetDefault("search.initial_backoff", d.Search.InitialBackoff)
	v.SetDefault("session.backend", d.Session.Backend)
	v.SetDefault("session.path", d.Session.Path)
	v.SetDefault("session.ttl", d.Session.TTL)
	v.SetDefault("enhanced.cache_ttl", d.Enhanced.CacheTTL)
	v.SetDefault("analytics.size", d.Analytics.Size)
	v.SetDefault("analytics.ttl", d.Analytics.TTL)
	v.SetDefault("catalogs.filters", d.Catalogs.Filters)
	v.SetDefault("catalogs.points", d.Catalogs.Points)
	v.SetDefault("sources", d.Sources)
}

func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend)
	}
	switch c.Session.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("session.backend: unknown backend %q", c.Session.Backend)
	}
	if c.Session.Backend == "sqlite" && c.Session.Path == "" {
		return errors.New("session.path is required for the sqlite backend")
	}
	if len(c.Sources) == 0 {
		return errors.New("at least one source must be configured")
	}
	seen := map[string]bool{}
	for i, s := range c.Sources {
		name := strings.ToLower(s.Name)
		if name == "" {
			return fmt.Errorf("sources[%d]: name is required", i)
		}
		if seen[name] {
			return fmt.Errorf("sources[%d]: duplicate source %q", i, s.Name)
		}
		seen[name] = true
		switch s.Kind {
		case "simulated", "fixture":
		default:
			return fmt.Errorf("sources[%d]: unknown kind %q", i, s.Kind)
		}
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}
