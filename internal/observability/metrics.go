package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the metadata aggregation
// service, organized by subsystem: upstream searches, lookups, and the
// results cache. All metrics are registered via promauto with the default
// Prometheus registry.
type Metrics struct {
	// SearchesStarted counts upstream searches initiated, labeled by source.
	SearchesStarted *prometheus.CounterVec

	// SearchesCompleted counts successful upstream searches, labeled by source.
	SearchesCompleted *prometheus.CounterVec

	// SearchesFailed counts failed upstream searches, labeled by source.
	SearchesFailed *prometheus.CounterVec

	// SearchDuration observes upstream search duration in seconds, labeled by source.
	SearchDuration *prometheus.HistogramVec

	// PapersPerSearch observes the distribution of papers returned per search, labeled by source.
	PapersPerSearch *prometheus.HistogramVec

	// LookupsStarted counts DOI lookups initiated.
	LookupsStarted prometheus.Counter

	// LookupFallbacks counts lookups that fell through to the second source.
	LookupFallbacks prometheus.Counter

	// LookupsNotFound counts lookups that found no record in any source.
	LookupsNotFound prometheus.Counter

	// CacheHits counts cache hits, labeled by namespace (search, trends, lookup).
	CacheHits *prometheus.CounterVec

	// CacheMisses counts cache misses, labeled by namespace.
	CacheMisses *prometheus.CounterVec

	// CacheStores counts successful cache stores, labeled by namespace.
	CacheStores *prometheus.CounterVec

	// CacheFaults counts swallowed cache-store faults, labeled by operation.
	CacheFaults *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		SearchesStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of upstream searches started by source",
		}, []string{"source"}),
		SearchesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of upstream searches completed by source",
		}, []string{"source"}),
		SearchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of upstream searches failed by source",
		}, []string{"source"}),
		SearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of upstream searches in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"source"}),
		PapersPerSearch: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_per_search",
			Help:      "Number of papers returned per upstream search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50},
		}, []string{"source"}),
		LookupsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_started_total",
			Help:      "Total number of DOI lookups started",
		}),
		LookupFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_fallbacks_total",
			Help:      "Total number of lookups that fell through to the second source",
		}),
		LookupsNotFound: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_not_found_total",
			Help:      "Total number of lookups that found no record in any source",
		}),
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits by namespace",
		}, []string{"namespace"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses by namespace",
		}, []string{"namespace"}),
		CacheStores: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_stores_total",
			Help:      "Total number of responses stored in the cache by namespace",
		}, []string{"namespace"}),
		CacheFaults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_faults_total",
			Help:      "Total number of swallowed cache-store faults by operation",
		}, []string{"operation"}),
	}
}
