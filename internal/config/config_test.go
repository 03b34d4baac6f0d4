package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)

	// Metrics defaults
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	// Cache defaults
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Cache.Address)
	assert.Equal(t, 3*time.Hour, cfg.Cache.SearchTTL)
	assert.Equal(t, 6*time.Hour, cfg.Cache.TrendsTTL)
	assert.Equal(t, 24*time.Hour, cfg.Cache.LookupTTL)

	// Source defaults
	assert.True(t, cfg.Sources.OpenAlex.Enabled)
	assert.Equal(t, "https://api.openalex.org", cfg.Sources.OpenAlex.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Sources.OpenAlex.Timeout)
	assert.Equal(t, 10.0, cfg.Sources.OpenAlex.RateLimit)
	assert.Equal(t, 25, cfg.Sources.OpenAlex.MaxResults)

	assert.True(t, cfg.Sources.CrossRef.Enabled)
	assert.Equal(t, "https://api.crossref.org", cfg.Sources.CrossRef.BaseURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("METASVC_SERVER_PORT", "9999")
	t.Setenv("METASVC_LOGGING_LEVEL", "debug")
	t.Setenv("METASVC_CACHE_ADDRESS", "redis.internal:6380")
	t.Setenv("METASVC_SOURCES_OPENALEX_MAILTO", "ops@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "redis.internal:6380", cfg.Cache.Address)
	assert.Equal(t, "ops@example.com", cfg.Sources.OpenAlex.Mailto)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("invalid port", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("invalid logging format", func(t *testing.T) {
		cfg := valid()
		cfg.Logging.Format = "xml"
		assert.Error(t, cfg.Validate())
	})

	t.Run("enabled cache requires an address", func(t *testing.T) {
		cfg := valid()
		cfg.Cache.Address = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("at least one source must be enabled", func(t *testing.T) {
		cfg := valid()
		cfg.Sources.OpenAlex.Enabled = false
		cfg.Sources.CrossRef.Enabled = false
		assert.Error(t, cfg.Validate())
	})

	t.Run("enabled source requires a positive rate limit", func(t *testing.T) {
		cfg := valid()
		cfg.Sources.CrossRef.RateLimit = 0
		assert.Error(t, cfg.Validate())
	})
}
