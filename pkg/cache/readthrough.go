package cache

import (
	"context"
	"time"
)

// ComputeFn produces a value from the system of record.
type ComputeFn[T any] func(ctx context.Context) (T, error)

// Lookup is a typed Get. A miss is reported as found == false with a nil
// error; backend and serialization failures are returned as errors.
func Lookup[T any](ctx context.Context, s *Service, key string) (T, bool, error) {
	var value T
	err := s.Get(ctx, key, &value)
	if err != nil {
		var zero T
		if IsMiss(err) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return value, true, nil
}

// ReadThrough serves key from the cache, or computes it and fills the cache
// on a miss. It is a caller-side convenience built only on Get and Set:
//
//   - an undecodable entry is recomputed and overwritten
//   - when the backend is unavailable the value is computed and returned
//     without touching the cache again
//   - a failed fill after a successful compute is logged, not returned
//
// Concurrent misses on the same key each run compute; there is no coalescing.
func ReadThrough[T any](ctx context.Context, s *Service, key string, ttl time.Duration, compute ComputeFn[T]) (T, error) {
	var zero T

	if _, err := s.resolveTTL(key, ttl); err != nil {
		return zero, err
	}

	var cached T
	err := s.Get(ctx, key, &cached)
	switch {
	case err == nil:
		return cached, nil
	case IsMiss(err):
	case IsSerialization(err):
		ReadThroughFallbacks.WithLabelValues(string(ErrorClassSerialization)).Inc()
	case IsBackendUnavailable(err):
		ReadThroughFallbacks.WithLabelValues(string(ErrorClassBackendUnavailable)).Inc()
		s.logger.Warn().
			Err(err).
			Str("key", key).
			Msg("Cache unavailable, computing from source")
		return compute(ctx)
	default:
		return zero, err
	}

	value, err := compute(ctx)
	if err != nil {
		return zero, err
	}

	if err := s.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn().
			Err(err).
			Str("key", key).
			Str("error_class", string(ClassOf(err))).
			Msg("Failed to cache computed value")
	}

	return value, nil
}
