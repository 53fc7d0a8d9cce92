package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Service is the shared cache gateway. It holds no per-request state; one
// instance is created at startup and handed to every feature module.
// All methods are safe for concurrent use.
type Service struct {
	redis      *redis.Client
	prefix     string
	defaultTTL time.Duration
	policy     []namespaceTTL
	codec      Codec
	scanCount  int64
	logger     zerolog.Logger
}

// New creates a cache service from cfg.
func New(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cache config: %w", err)
	}

	codec := cfg.Codec
	if codec == nil {
		codec = JSONCodec{}
	}

	scanCount := cfg.ScanCount
	if scanCount == 0 {
		scanCount = DefaultScanCount
	}

	return &Service{
		redis:      cfg.Redis,
		prefix:     cfg.KeyPrefix,
		defaultTTL: cfg.DefaultTTL,
		policy:     ttlPolicy(cfg.NamespaceTTLs),
		codec:      codec,
		scanCount:  scanCount,
		logger:     cfg.Logger,
	}, nil
}

// Get decodes the value stored under key into dst.
// Returns ErrCacheMiss if the key doesn't exist or has expired.
// A value that cannot be decoded is deleted and reported as a
// serialization error. dst must be a non-nil pointer.
func (s *Service) Get(ctx context.Context, key string, dst any) error {
	if rv := reflect.ValueOf(dst); rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("cache get %q: destination must be a non-nil pointer, got %T", key, dst)
	}

	data, err := s.GetBytes(ctx, key)
	if err != nil {
		return err
	}

	if err := s.codec.Unmarshal(data, dst); err != nil {
		CacheErrors.WithLabelValues("get", string(ErrorClassSerialization)).Inc()
		s.logger.Warn().
			Err(err).
			Str("key", key).
			Str("codec", s.codec.Name()).
			Str("error_class", string(ErrorClassSerialization)).
			Msg("Dropping undecodable cache entry")

		if delErr := s.redis.Del(ctx, s.backendKey(key)).Err(); delErr != nil {
			s.logger.Warn().Err(delErr).Str("key", key).Msg("Failed to delete undecodable cache entry")
		}

		return &Error{Op: "get", Key: key, Class: ErrorClassSerialization, Err: err}
	}

	return nil
}

// GetBytes returns the raw payload stored under key.
// Returns ErrCacheMiss if the key doesn't exist or has expired.
func (s *Service) GetBytes(ctx context.Context, key string) ([]byte, error) {
	if err := s.validate("get", key); err != nil {
		return nil, err
	}
	defer observe("get", time.Now())

	namespace := Namespace(key)
	data, err := s.redis.Get(ctx, s.backendKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.WithLabelValues(namespace).Inc()
			s.logger.Debug().Str("key", key).Msg("Cache miss")
			return nil, ErrCacheMiss
		}
		return nil, s.fail("get", key, err)
	}

	CacheHits.WithLabelValues(namespace).Inc()
	s.logger.Debug().Str("key", key).Int("bytes", len(data)).Msg("Cache hit")

	return data, nil
}

// Set encodes value and stores it under key, replacing any existing entry.
// A ttl of 0 selects the namespace policy or the default TTL; a negative
// ttl is rejected.
func (s *Service) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := s.validate("set", key); err != nil {
		return err
	}

	data, err := s.codec.Marshal(value)
	if err != nil {
		CacheErrors.WithLabelValues("set", string(ErrorClassSerialization)).Inc()
		s.logger.Warn().
			Err(err).
			Str("key", key).
			Str("codec", s.codec.Name()).
			Str("error_class", string(ErrorClassSerialization)).
			Msg("Failed to encode cache value")
		return &Error{Op: "set", Key: key, Class: ErrorClassSerialization, Err: err}
	}

	return s.SetBytes(ctx, key, data, ttl)
}

// SetBytes stores an already encoded payload under key.
func (s *Service) SetBytes(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := s.validate("set", key); err != nil {
		return err
	}

	ttl, err := s.resolveTTL(key, ttl)
	if err != nil {
		return err
	}
	defer observe("set", time.Now())

	if err := s.redis.Set(ctx, s.backendKey(key), data, ttl).Err(); err != nil {
		return s.fail("set", key, err)
	}

	s.logger.Debug().
		Str("key", key).
		Dur("ttl", ttl).
		Int("bytes", len(data)).
		Msg("Cached value")

	return nil
}

// Delete removes the given keys. Missing keys are not an error.
func (s *Service) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	backendKeys := make([]string, len(keys))
	for i, key := range keys {
		if err := s.validate("delete", key); err != nil {
			return err
		}
		backendKeys[i] = s.backendKey(key)
	}
	defer observe("delete", time.Now())

	if err := s.redis.Del(ctx, backendKeys...).Err(); err != nil {
		return s.fail("delete", strings.Join(keys, ","), err)
	}

	s.logger.Debug().Strs("keys", keys).Msg("Deleted cache entries")
	return nil
}

// InvalidatePattern deletes every key matching pattern and returns how many
// were removed. The whole keyspace is scanned first and the matches are then
// deleted in batches, so it is not atomic: keys written during the scan may
// survive, and on error the count of keys already deleted is returned with
// the error while some matching keys remain.
func (s *Service) InvalidatePattern(ctx context.Context, pattern string) (int64, error) {
	if err := Pattern(pattern).Validate(); err != nil {
		CacheErrors.WithLabelValues("invalidate", string(ErrorClassInvalidKey)).Inc()
		return 0, err
	}
	defer observe("invalidate", time.Now())

	keys, err := s.scan(ctx, s.prefix+pattern)
	if err != nil {
		return 0, s.fail("invalidate", pattern, err)
	}

	var deleted int64
	batch := int(s.scanCount)
	for start := 0; start < len(keys); start += batch {
		end := min(start+batch, len(keys))

		n, err := s.redis.Del(ctx, keys[start:end]...).Result()
		deleted += n
		if err != nil {
			InvalidatedKeys.Add(float64(deleted))
			return deleted, s.fail("invalidate", pattern, err)
		}
	}

	InvalidatedKeys.Add(float64(deleted))
	s.logger.Info().
		Str("pattern", pattern).
		Int("matched", len(keys)).
		Int64("deleted", deleted).
		Msg("Invalidated cache entries")

	return deleted, nil
}

// scan runs a complete SCAN MATCH iteration and returns the distinct backend
// keys found. SCAN may report a key more than once.
func (s *Service) scan(ctx context.Context, match string) ([]string, error) {
	var (
		cursor uint64
		keys   []string
		seen   = make(map[string]struct{})
	)

	for {
		batch, next, err := s.redis.Scan(ctx, cursor, match, s.scanCount).Result()
		if err != nil {
			return nil, err
		}

		for _, k := range batch {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}

		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

// Keys returns the keys currently matching pattern, without the configured
// prefix. It is the read-only counterpart of InvalidatePattern.
func (s *Service) Keys(ctx context.Context, pattern string) ([]string, error) {
	p := Pattern(pattern)
	if err := p.Validate(); err != nil {
		CacheErrors.WithLabelValues("keys", string(ErrorClassInvalidKey)).Inc()
		return nil, err
	}
	defer observe("keys", time.Now())

	backendKeys, err := s.scan(ctx, s.prefix+pattern)
	if err != nil {
		return nil, s.fail("keys", pattern, err)
	}

	var found []string
	for _, k := range backendKeys {
		key := strings.TrimPrefix(k, s.prefix)
		if p.Matches(key) {
			found = append(found, key)
		}
	}
	return found, nil
}

// TTL returns the remaining lifetime of key.
// Returns ErrCacheMiss if the key doesn't exist, and 0 if it has no expiry.
func (s *Service) TTL(ctx context.Context, key string) (time.Duration, error) {
	if err := s.validate("ttl", key); err != nil {
		return 0, err
	}
	defer observe("ttl", time.Now())

	ttl, err := s.redis.PTTL(ctx, s.backendKey(key)).Result()
	if err != nil {
		return 0, s.fail("ttl", key, err)
	}

	return remainingTTL(ttl)
}

// Inspect returns the raw payload of key together with its expiry.
func (s *Service) Inspect(ctx context.Context, key string) (*Entry, error) {
	if err := s.validate("inspect", key); err != nil {
		return nil, err
	}
	defer observe("inspect", time.Now())

	backendKey := s.backendKey(key)
	pipe := s.redis.Pipeline()
	getCmd := pipe.Get(ctx, backendKey)
	ttlCmd := pipe.PTTL(ctx, backendKey)

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, s.fail("inspect", key, err)
	}

	data, err := getCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, s.fail("inspect", key, err)
	}

	ttl, err := remainingTTL(ttlCmd.Val())
	if err != nil {
		return nil, err
	}

	entry := &Entry{Key: key, Value: data}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}
	return entry, nil
}

// Ping checks backend reachability.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return s.fail("ping", "", err)
	}
	return nil
}

// ResolveTTL returns the TTL Set would apply to key for the given ttl.
func (s *Service) ResolveTTL(key string, ttl time.Duration) (time.Duration, error) {
	return s.resolveTTL(key, ttl)
}

func (s *Service) resolveTTL(key string, ttl time.Duration) (time.Duration, error) {
	if ttl < 0 {
		CacheErrors.WithLabelValues("set", string(ErrorClassInvalidTTL)).Inc()
		return 0, &Error{Op: "set", Key: key, Class: ErrorClassInvalidTTL, Err: fmt.Errorf("negative ttl %s", ttl)}
	}
	if ttl > 0 {
		return ttl, nil
	}

	for _, p := range s.policy {
		if key == p.prefix || strings.HasPrefix(key, p.prefix+KeySeparator) {
			return p.ttl, nil
		}
	}
	return s.defaultTTL, nil
}

func (s *Service) validate(op, key string) error {
	if err := ValidateKey(key); err != nil {
		CacheErrors.WithLabelValues(op, string(ErrorClassInvalidKey)).Inc()
		return err
	}
	return nil
}

func (s *Service) backendKey(key string) string {
	return s.prefix + key
}

// fail classifies and records a backend failure.
func (s *Service) fail(op, key string, err error) error {
	CacheErrors.WithLabelValues(op, string(ErrorClassBackendUnavailable)).Inc()
	s.logger.Warn().
		Err(err).
		Str("operation", op).
		Str("key", key).
		Str("error_class", string(ErrorClassBackendUnavailable)).
		Msg("Cache backend error")
	return backendError(op, key, err)
}

// remainingTTL interprets a PTTL reply: -2 means missing, -1 no expiry.
func remainingTTL(ttl time.Duration) (time.Duration, error) {
	switch ttl {
	case -2:
		return 0, ErrCacheMiss
	case -1:
		return 0, nil
	}
	return ttl, nil
}

func observe(op string, start time.Time) {
	OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
