package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 30*time.Second, cfg.Search.Timeout)
	assert.Equal(t, int64(10), cfg.Search.MaxConcurrent)
	assert.Equal(t, 30*time.Minute, cfg.Enhanced.CacheTTL)
	assert.Equal(t, 1000, cfg.Analytics.Size)
	assert.Len(t, cfg.Sources, 4)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "9090"
search:
  timeout: 5s
  max_concurrent: 4
session:
  backend: sqlite
  path: /tmp/fare-sessions.db
sources:
  - name: local
    kind: fixture
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("FARE_SEARCH_TIMEOUT", "12s")
	t.Setenv("FARE_ENV", "development")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 12*time.Second, cfg.Search.Timeout, "environment wins over the file")
	assert.Equal(t, int64(4), cfg.Search.MaxConcurrent)
	assert.Equal(t, "sqlite", cfg.Session.Backend)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "local", cfg.Sources[0].Name)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 5*time.Minute, cfg.Search.CacheTTL, "unset keys keep their defaults")
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("FARE_CACHE_BACKEND", "memcached")
	_, err := Load("")
	assert.ErrorContains(t, err, "cache.backend")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown session backend", func(c *Config) { c.Session.Backend = "postgres" }, "session.backend"},
		{"sqlite without path", func(c *Config) { c.Session.Backend = "sqlite"; c.Session.Path = "" }, "session.path"},
		{"no sources", func(c *Config) { c.Sources = nil }, "at least one source"},
		{"duplicate source", func(c *Config) { c.Sources = append(c.Sources, SourceConfig{Name: "SKYHUB", Kind: "simulated"}) }, "duplicate"},
		{"unknown kind", func(c *Config) { c.Sources[0].Kind = "soap" }, "unknown kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}
