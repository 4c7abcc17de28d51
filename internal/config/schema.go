package config

import "time"

// Config is the full service configuration.
type Config struct {
	// Env selects console logging when set to "development".
	Env       string          `yaml:"env" mapstructure:"env"`
	LogLevel  string          `yaml:"log_level" mapstructure:"log_level"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Redis     RedisConfig     `yaml:"redis" mapstructure:"redis"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Session   SessionConfig   `yaml:"session" mapstructure:"session"`
	Enhanced  EnhancedConfig  `yaml:"enhanced" mapstructure:"enhanced"`
	Analytics AnalyticsConfig `yaml:"analytics" mapstructure:"analytics"`
	Catalogs  CatalogConfig   `yaml:"catalogs" mapstructure:"catalogs"`
	Sources   []SourceConfig  `yaml:"sources" mapstructure:"sources"`
}

type ServerConfig struct {
	Port string `yaml:"port" mapstructure:"port"`
}

// CacheConfig selects the offer cache backend: memory, redis or none.
type CacheConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"`
}

type RedisConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     string `yaml:"port" mapstructure:"port"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

type SearchConfig struct {
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxConcurrent  int64         `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	CacheTTL       time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	MaxRetries     int           `yaml:"max_retries" mapstructure:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
}

// SessionConfig selects the session store: memory or sqlite.
type SessionConfig struct {
	Backend string        `yaml:"backend" mapstructure:"backend"`
	Path    string        `yaml:"path" mapstructure:"path"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

type EnhancedConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

type AnalyticsConfig struct {
	Size int           `yaml:"size" mapstructure:"size"`
	TTL  time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// CatalogConfig points at YAML files replacing the embedded catalogs.
type CatalogConfig struct {
	Filters string `yaml:"filters" mapstructure:"filters"`
	Points  string `yaml:"points" mapstructure:"points"`
}

// SourceConfig describes one upstream. Kind is simulated or fixture.
type SourceConfig struct {
	Name          string        `yaml:"name" mapstructure:"name"`
	Kind          string        `yaml:"kind" mapstructure:"kind"`
	Carriers      []string      `yaml:"carriers" mapstructure:"carriers"`
	Aircraft      []string      `yaml:"aircraft" mapstructure:"aircraft"`
	AwardPrograms []string      `yaml:"award_programs" mapstructure:"award_programs"`
	MinLatency    time.Duration `yaml:"min_latency" mapstructure:"min_latency"`
	MaxLatency    time.Duration `yaml:"max_latency" mapstructure:"max_latency"`
	FailureRate   float64       `yaml:"failure_rate" mapstructure:"failure_rate"`
	PriceFactor   float64       `yaml:"price_factor" mapstructure:"price_factor"`
	Currency      string        `yaml:"currency" mapstructure:"currency"`
	Capabilities  []string      `yaml:"capabilities" mapstructure:"capabilities"`
	RateLimit     float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	Burst         int           `yaml:"burst" mapstructure:"burst"`
}
