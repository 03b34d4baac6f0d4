// Package observability provides logging and metrics support for the
// metadata aggregation service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for upstream searches, lookups, and the cache
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("query", query).Msg("search started")
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("metasvc")
//
// Record metrics:
//
//	metrics.SearchesStarted.WithLabelValues("openalex").Inc()
//	metrics.CacheHits.WithLabelValues("search").Inc()
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - query: the client's free-text search query
//   - source: upstream registry (openalex, crossref)
//   - doi: persistent identifier of a paper
//   - cache_key: derived cache key for a request
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
