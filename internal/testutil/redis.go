// Package testutil provides Redis backends and call tracking for tests.
package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewRedis starts an in-memory Redis and returns a client connected to it.
// Both are closed when the test ends. Use the returned server to advance
// time (FastForward), inspect keys, or simulate outages (Close, SetError).
func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr:         server.Addr(),
		MaxRetries:   -1, // surface outages immediately
		DialTimeout:  200 * time.Millisecond,
		ReadTimeout:  200 * time.Millisecond,
		WriteTimeout: 200 * time.Millisecond,
	})

	t.Cleanup(func() {
		client.Close()
	})

	return client, server
}

// NopLogger returns a disabled logger for components under test.
func NopLogger() zerolog.Logger {
	return zerolog.Nop()
}

// Calls counts invocations per key. It is safe for concurrent use.
type Calls struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewCalls creates an empty call counter.
func NewCalls() *Calls {
	return &Calls{counts: make(map[string]int)}
}

// Inc records one call for key.
func (c *Calls) Inc(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
}

// Count returns the number of calls recorded for key.
func (c *Calls) Count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key]
}

// Reset clears all counters.
func (c *Calls) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[string]int)
}
