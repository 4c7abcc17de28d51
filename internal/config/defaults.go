package config

import "time"

// DefaultConfig returns a configuration that runs fully in memory.
func DefaultConfig() *Config {
	return &Config{
		Env:      "production",
		LogLevel: "info",
		Server:   ServerConfig{Port: "8080"},
		Cache:    CacheConfig{Backend: "memory"},
		Redis: RedisConfig{
			Host: "localhost",
			Port: "6379",
		},
		Search: SearchConfig{
			Timeout:        30 * time.Second,
			MaxConcurrent:  10,
			CacheTTL:       5 * time.Minute,
			MaxRetries:     2,
			InitialBackoff: 100 * time.Millisecond,
		},
		Session: SessionConfig{
			Backend: "memory",
			Path:    "~/.fareengine/sessions.db",
			TTL:     time.Hour,
		},
		Enhanced:  EnhancedConfig{CacheTTL: 30 * time.Minute},
		Analytics: AnalyticsConfig{Size: 1000, TTL: time.Hour},
		Sources: []SourceConfig{
			{
				Name:          "skyhub",
				Kind:          "simulated",
				Carriers:      []string{"BA", "AA", "IB"},
				AwardPrograms: []string{"british_airways", "american"},
				MinLatency:    50 * time.Millisecond,
				MaxLatency:    300 * time.Millisecond,
				FailureRate:   0.05,
				PriceFactor:   1.0,
				Currency:      "USD",
				RateLimit:     20,
				Burst:         30,
			},
			{
				Name:          "farefinder",
				Kind:          "simulated",
				Carriers:      []string{"UA", "LH", "AC"},
				AwardPrograms: []string{"united", "aeroplan"},
				MinLatency:    100 * time.Millisecond,
				MaxLatency:    600 * time.Millisecond,
				FailureRate:   0.1,
				PriceFactor:   0.95,
				Currency:      "USD",
				RateLimit:     15,
				Burst:         25,
			},
			{
				Name:          "globaljet",
				Kind:          "simulated",
				Carriers:      []string{"DL", "AF", "KL", "VS"},
				AwardPrograms: []string{"delta", "flying_blue", "virgin_atlantic"},
				MinLatency:    80 * time.Millisecond,
				MaxLatency:    900 * time.Millisecond,
				FailureRate:   0.15,
				PriceFactor:   1.05,
				Currency:      "USD",
				Capabilities:  []string{"one_way", "award"},
				RateLimit:     10,
				Burst:         20,
			},
			{
				Name:      "partnerfeed",
				Kind:      "fixture",
				RateLimit: 10,
				Burst:     20,
			},
		},
	}
}
