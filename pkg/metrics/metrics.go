// Package metrics exposes the Prometheus registry used by the rental cache.
// Metrics are defined next to the code that records them (pkg/cache,
// pkg/warmup) and registered against Registry via promauto; this package
// documents them in one place.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer the cache and warmup metrics are registered with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer serving Registry's metrics.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the HTTP handler exposing all registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - rental_cache_hits_total{namespace} (Counter): Cache hits by key namespace
//   - rental_cache_misses_total{namespace} (Counter): Cache misses by key namespace
//   - rental_cache_errors_total{operation,class} (Counter): Failures by operation and error class
//   - rental_cache_invalidated_keys_total (Counter): Keys removed by pattern invalidation
//   - rental_cache_operation_duration_seconds{operation} (Histogram): Backend round-trip latency
//   - rental_cache_readthrough_fallbacks_total{reason} (Counter): Read-through calls served without the cache
//
// Warmup Metrics (pkg/warmup):
//   - rental_cache_warmup_jobs_total{result} (Counter): Warmup jobs by result (filled, failed)
//
// Example Prometheus Queries:
//
//   # Hit Rate per namespace
//   sum by (namespace) (rate(rental_cache_hits_total[5m])) /
//   (sum by (namespace) (rate(rental_cache_hits_total[5m])) + sum by (namespace) (rate(rental_cache_misses_total[5m])))
//
//   # Degraded cache
//   rate(rental_cache_errors_total{class="backend_unavailable"}[5m]) > 0
//
//   # P99 GET latency
//   histogram_quantile(0.99, rate(rental_cache_operation_duration_seconds_bucket{operation="get"}[5m]))
