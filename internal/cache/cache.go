// Package cache provides the response cache for the metadata service:
// a byte-oriented Store interface with Redis and in-memory
// implementations, deterministic key computation, and a Gate that
// degrades store faults into misses.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"time"
)

// Default TTLs by response kind, ordered by decreasing volatility of
// the underlying registry data.
const (
	DefaultSearchTTL = 3 * time.Hour
	DefaultTrendsTTL = 6 * time.Hour
	DefaultLookupTTL = 24 * time.Hour
)

// ErrCacheMiss indicates that a key is not present in the store.
var ErrCacheMiss = errors.New("cache miss")

// Store is a byte-oriented cache with TTL expiry. Implementations must
// return ErrCacheMiss from Get when the key is absent or expired.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key computes a deterministic cache key for a canonicalized parameter
// set. Parameters are serialized as sorted k=v pairs joined by "&" and
// hashed, so any ordering of the same set yields the same key.
func Key(namespace string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha256.Sum256([]byte(strings.Join(pairs, "&")))
	return namespace + ":" + hex.EncodeToString(sum[:])
}
