// Package config provides configuration management for the metadata
// aggregation service.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the metadata aggregation service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Cache contains Redis cache settings.
	Cache CacheConfig `mapstructure:"cache"`
	// Sources contains upstream registry settings.
	Sources SourcesConfig `mapstructure:"sources"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// Port is the HTTP server port (default: 8080).
	Port int `mapstructure:"port"`
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the keep-alive idle timeout.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the host:port bind address.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// CacheConfig holds Redis cache configuration.
type CacheConfig struct {
	// Enabled enables the response cache. When disabled the service
	// recomputes every request.
	Enabled bool `mapstructure:"enabled"`
	// Address is the host:port of the Redis server.
	Address string `mapstructure:"address"`
	// Password is the optional Redis password.
	Password string `mapstructure:"password"`
	// DB selects the Redis logical database.
	DB int `mapstructure:"db"`
	// SearchTTL is the lifetime of cached search responses.
	SearchTTL time.Duration `mapstructure:"search_ttl"`
	// TrendsTTL is the lifetime of cached trends responses.
	TrendsTTL time.Duration `mapstructure:"trends_ttl"`
	// LookupTTL is the lifetime of cached lookup responses.
	LookupTTL time.Duration `mapstructure:"lookup_ttl"`
}

// SourcesConfig holds per-registry settings.
type SourcesConfig struct {
	// OpenAlex configures the works-index registry.
	OpenAlex SourceConfig `mapstructure:"openalex"`
	// CrossRef configures the citation registry.
	CrossRef SourceConfig `mapstructure:"crossref"`
}

// SourceConfig holds settings shared by all registry clients.
type SourceConfig struct {
	// Enabled includes this source in aggregation.
	Enabled bool `mapstructure:"enabled"`
	// BaseURL overrides the registry API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Mailto is the contact email sent for polite-pool access.
	Mailto string `mapstructure:"mailto"`
	// Timeout is the per-request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// BurstSize is the rate limiter burst size.
	BurstSize int `mapstructure:"burst_size"`
	// MaxResults is the default per-call result count.
	MaxResults int `mapstructure:"max_results"`
}

// Load reads configuration from defaults, an optional config file, and
// METASVC_-prefixed environment variables, in increasing precedence.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("METASVC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/metadata-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.search_ttl", "3h")
	v.SetDefault("cache.trends_ttl", "6h")
	v.SetDefault("cache.lookup_ttl", "24h")

	// Source defaults
	v.SetDefault("sources.openalex.enabled", true)
	v.SetDefault("sources.openalex.base_url", "https://api.openalex.org")
	v.SetDefault("sources.openalex.mailto", "")
	v.SetDefault("sources.openalex.timeout", "15s")
	v.SetDefault("sources.openalex.rate_limit", 10)
	v.SetDefault("sources.openalex.burst_size", 10)
	v.SetDefault("sources.openalex.max_results", 25)

	v.SetDefault("sources.crossref.enabled", true)
	v.SetDefault("sources.crossref.base_url", "https://api.crossref.org")
	v.SetDefault("sources.crossref.mailto", "")
	v.SetDefault("sources.crossref.timeout", "15s")
	v.SetDefault("sources.crossref.rate_limit", 10)
	v.SetDefault("sources.crossref.burst_size", 10)
	v.SetDefault("sources.crossref.max_results", 25)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown timeout must not be negative")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %q", c.Logging.Format)
	}

	if c.Cache.Enabled && c.Cache.Address == "" {
		return fmt.Errorf("cache address is required when the cache is enabled")
	}
	if c.Cache.SearchTTL < 0 || c.Cache.TrendsTTL < 0 || c.Cache.LookupTTL < 0 {
		return fmt.Errorf("cache TTLs must not be negative")
	}

	if !c.Sources.OpenAlex.Enabled && !c.Sources.CrossRef.Enabled {
		return fmt.Errorf("at least one source must be enabled")
	}
	for name, src := range map[string]SourceConfig{
		"openalex": c.Sources.OpenAlex,
		"crossref": c.Sources.CrossRef,
	} {
		if src.Enabled && src.RateLimit <= 0 {
			return fmt.Errorf("%s rate limit must be positive", name)
		}
		if src.Enabled && src.Timeout <= 0 {
			return fmt.Errorf("%s timeout must be positive", name)
		}
	}

	return nil
}
