package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarmeta/metadata-service/internal/observability"
)

// Gate fronts a Store and enforces the cache failure policy: store
// faults never surface to request handling. A failed Get degrades to a
// miss and a failed Set degrades to a no-op, both counted and logged.
// A nil store (cache disabled) behaves as an always-empty cache.
type Gate struct {
	store   Store
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewGate creates a Gate over the given store. Pass a nil store to run
// without caching.
func NewGate(store Store, logger zerolog.Logger, metrics *observability.Metrics) *Gate {
	return &Gate{
		store:   store,
		logger:  logger.With().Str("component", "cache").Logger(),
		metrics: metrics,
	}
}

// Enabled reports whether a backing store is configured.
func (g *Gate) Enabled() bool {
	return g.store != nil
}

// Get looks the key up in the store. The namespace labels the hit/miss
// metrics. Store faults are swallowed and reported as a miss.
func (g *Gate) Get(ctx context.Context, namespace, key string) ([]byte, bool) {
	if g.store == nil {
		g.metrics.CacheMisses.WithLabelValues(namespace).Inc()
		return nil, false
	}

	value, err := g.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			g.metrics.CacheFaults.WithLabelValues("get").Inc()
			g.logger.Warn().Err(err).Str("key", key).Msg("cache get failed, treating as miss")
		}
		g.metrics.CacheMisses.WithLabelValues(namespace).Inc()
		return nil, false
	}

	g.metrics.CacheHits.WithLabelValues(namespace).Inc()
	return value, true
}

// Set stores a payload under the key. Callers must check Cacheable
// first; empty or erroneous responses are never stored. Store faults
// are swallowed into a no-op.
func (g *Gate) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) {
	if g.store == nil || len(value) == 0 {
		return
	}

	if err := g.store.Set(ctx, key, value, ttl); err != nil {
		g.metrics.CacheFaults.WithLabelValues("set").Inc()
		g.logger.Warn().Err(err).Str("key", key).Msg("cache set failed, skipping store")
		return
	}
	g.metrics.CacheStores.WithLabelValues(namespace).Inc()
}

// Cacheable reports whether a freshly computed response may be stored.
// Only successful responses carrying at least one result are eligible;
// empty result sets and error responses must never be cached.
func Cacheable(payload []byte, resultCount int) bool {
	return len(payload) > 0 && resultCount > 0
}
