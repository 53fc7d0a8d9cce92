package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sternrassler/rental-cache/pkg/metrics"
)

var (
	// CacheHits tracks cache hits by key namespace
	CacheHits = promauto.With(metrics.Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"namespace"},
	)

	// CacheMisses tracks cache misses by key namespace
	CacheMisses = promauto.With(metrics.Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"namespace"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.With(metrics.Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation", "class"},
	)

	// InvalidatedKeys tracks keys removed by pattern invalidation
	InvalidatedKeys = promauto.With(metrics.Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "rental_cache_invalidated_keys_total",
			Help: "Total number of keys removed by pattern invalidation",
		},
	)

	// OperationDuration tracks backend round-trip latency per operation
	OperationDuration = promauto.With(metrics.Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rental_cache_operation_duration_seconds",
			Help:    "Cache operation duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"}, // "get", "set", "delete", "invalidate", "ttl", "inspect"
	)

	// ReadThroughFallbacks tracks read-through calls that skipped the cache
	ReadThroughFallbacks = promauto.With(metrics.Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_cache_readthrough_fallbacks_total",
			Help: "Total number of read-through calls served without the cache",
		},
		[]string{"reason"}, // "backend_unavailable", "serialization"
	)
)
