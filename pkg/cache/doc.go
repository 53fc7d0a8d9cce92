// Package cache provides the platform's shared cache-aside layer on a Redis
// backend.
//
// One Service is created at startup and passed to every feature module
// (analytics, bank slips, documents, properties). Feature modules decide
// what to cache and when to invalidate; the Service decides how:
//
// - Namespaced keys ("analytics:payments-summary:2024-01:P1"), validated
// before any network call
// - TTL on every entry: explicit, per-namespace policy, or default
// - Pattern invalidation ("analytics:*:P1") via SCAN + DEL
// - Pluggable value codecs (JSON, MessagePack)
// - Prometheus metrics and zerolog logging
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//
//	svc, err := cache.New(cache.DefaultConfig(redisClient))
//	if err != nil {
//		return err
//	}
//
//	key := cache.NewKey("analytics:payments-summary", "2024-01", "P1").String()
//
//	var summary PaymentsSummary
//	err = svc.Get(ctx, key, &summary)
//	switch {
//	case cache.IsMiss(err):
//		// compute from the system of record, then:
//		_ = svc.Set(ctx, key, summary, 5*time.Minute)
//	case cache.IsBackendUnavailable(err):
//		// bypass the cache and serve live data
//	}
//
// # Read-Through
//
// ReadThrough wraps the sequence above, including the fallback to live
// computation when Redis is unreachable:
//
//	summary, err := cache.ReadThrough(ctx, svc, key, 0, func(ctx context.Context) (PaymentsSummary, error) {
//		return source.PaymentsSummary(ctx, "P1", "2024-01")
//	})
//
// # Invalidation
//
// Mutations of the system of record must invalidate synchronously:
//
//	if err := store.RecordPayment(ctx, p); err != nil {
//		return err
//	}
//	_, err := svc.InvalidatePattern(ctx, "analytics:*:"+p.PropertyID)
//
// Pattern invalidation is not atomic. Keys written concurrently with the scan
// may survive, and a failure midway leaves part of the scope in place.
//
// # Errors
//
//   - ErrCacheMiss - key absent or expired (expected outcome)
//   - ErrInvalidKey - key or pattern violates the grammar (caller bug)
//   - ErrInvalidTTL - negative ttl (caller bug)
//   - ErrSerialization - encode/decode failure; undecodable entries are deleted
//   - ErrBackendUnavailable - Redis unreachable, timed out or erroring
//
// The Service never retries. Retries, if any, belong to the go-redis client
// options.
//
// # Metrics
//
//   - rental_cache_hits_total{namespace}
//   - rental_cache_misses_total{namespace}
//   - rental_cache_errors_total{operation,class}
//   - rental_cache_invalidated_keys_total
//   - rental_cache_operation_duration_seconds{operation}
//   - rental_cache_readthrough_fallbacks_total{reason}
package cache
