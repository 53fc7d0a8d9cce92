package cache

import (
	"time"
)

// Entry is a snapshot of a stored cache value and its expiry, as returned
// by Service.Inspect.
type Entry struct {
	// Key is the caller-facing key (without the process key prefix).
	Key string `json:"key"`

	// Value is the encoded payload.
	Value []byte `json:"value"`

	// ExpiresAt is when the backend will evict the entry.
	// Zero means the entry carries no expiry.
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	if e.ExpiresAt.IsZero() {
		return false
	}
	return !time.Now().Before(e.ExpiresAt)
}

// TTL returns the time until expiration.
// Returns 0 if already expired or if the entry has no expiry.
func (e *Entry) TTL() time.Duration {
	if e.ExpiresAt.IsZero() {
		return 0
	}
	ttl := time.Until(e.ExpiresAt)
	if ttl < 0 {
		return 0
	}
	return ttl
}
