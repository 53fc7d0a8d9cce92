package cache

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultTTL applies when neither the caller nor a namespace policy
	// provides one.
	DefaultTTL = 5 * time.Minute

	// DefaultScanCount is the COUNT hint passed to SCAN during invalidation.
	DefaultScanCount = 500
)

// Config holds the cache service configuration.
type Config struct {
	// Redis is the shared backend client (required).
	Redis *redis.Client

	// KeyPrefix is prepended to every backend key and scan pattern,
	// isolating this process's keys on a shared Redis.
	KeyPrefix string

	// DefaultTTL applies to Set calls with ttl == 0 and no namespace policy.
	DefaultTTL time.Duration

	// NamespaceTTLs maps namespace prefixes ("analytics",
	// "bank-slip:payment-order") to default TTLs. The longest prefix wins.
	NamespaceTTLs map[string]time.Duration

	// Codec serializes values (default: JSONCodec).
	Codec Codec

	// ScanCount is the SCAN COUNT hint for pattern invalidation.
	ScanCount int64

	// Logger receives cache events.
	Logger zerolog.Logger
}

// DefaultConfig returns a configuration with JSON encoding and a
// five-minute default TTL.
func DefaultConfig(redisClient *redis.Client) Config {
	return Config{
		Redis:      redisClient,
		DefaultTTL: DefaultTTL,
		Codec:      JSONCodec{},
		ScanCount:  DefaultScanCount,
		Logger:     log.With().Str("component", "cache").Logger(),
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if c.Redis == nil {
		return fmt.Errorf("redis client is required")
	}
	if c.DefaultTTL <= 0 {
		return fmt.Errorf("default ttl must be positive (got %s)", c.DefaultTTL)
	}
	if c.ScanCount < 0 {
		return fmt.Errorf("scan count must not be negative (got %d)", c.ScanCount)
	}
	if strings.ContainsAny(c.KeyPrefix, globMeta+" \t\r\n") {
		return fmt.Errorf("key prefix %q contains glob metacharacters or whitespace", c.KeyPrefix)
	}
	for ns, ttl := range c.NamespaceTTLs {
		if ns == "" || strings.ContainsAny(ns, globMeta) {
			return fmt.Errorf("invalid namespace %q in ttl policy", ns)
		}
		if ttl <= 0 {
			return fmt.Errorf("ttl for namespace %q must be positive (got %s)", ns, ttl)
		}
	}
	return nil
}

// namespaceTTL is one entry of the TTL policy.
type namespaceTTL struct {
	prefix string
	ttl    time.Duration
}

// ttlPolicy orders namespace TTLs longest prefix first.
func ttlPolicy(m map[string]time.Duration) []namespaceTTL {
	policy := make([]namespaceTTL, 0, len(m))
	for ns, ttl := range m {
		policy = append(policy, namespaceTTL{prefix: strings.TrimSuffix(ns, KeySeparator), ttl: ttl})
	}
	sort.Slice(policy, func(i, j int) bool {
		if len(policy[i].prefix) != len(policy[j].prefix) {
			return len(policy[i].prefix) > len(policy[j].prefix)
		}
		return policy[i].prefix < policy[j].prefix
	})
	return policy
}
