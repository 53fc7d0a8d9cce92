package cache

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found or has expired.
	// A miss is an expected outcome, not a failure.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidKey indicates a key or pattern that violates the key grammar.
	ErrInvalidKey = errors.New("invalid cache key")

	// ErrInvalidTTL indicates a negative TTL was passed to Set.
	ErrInvalidTTL = errors.New("invalid cache ttl")

	// ErrSerialization indicates a value could not be encoded or decoded.
	ErrSerialization = errors.New("cache serialization failed")

	// ErrBackendUnavailable indicates the key-value backend could not serve
	// the request (connection failure, timeout, server error).
	ErrBackendUnavailable = errors.New("cache backend unavailable")
)

// ErrorClass classifies cache failures for callers, logs and metrics.
type ErrorClass string

const (
	// ErrorClassInvalidKey is a caller bug, rejected before any network call.
	ErrorClassInvalidKey ErrorClass = "invalid_key"

	// ErrorClassInvalidTTL is a caller bug, rejected before any network call.
	ErrorClassInvalidTTL ErrorClass = "invalid_ttl"

	// ErrorClassSerialization covers encode and decode failures.
	ErrorClassSerialization ErrorClass = "serialization"

	// ErrorClassBackendUnavailable covers every backend failure.
	ErrorClassBackendUnavailable ErrorClass = "backend_unavailable"
)

// Error is a classified cache error.
type Error struct {
	Op    string
	Key   string
	Class ErrorClass
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cache %s %q: %s: %v", e.Op, e.Key, e.Class, e.Err)
	}
	return fmt.Sprintf("cache %s %q: %s", e.Op, e.Key, e.Class)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel corresponding to the error class.
func (e *Error) Is(target error) bool {
	return target == e.Class.sentinel()
}

func (c ErrorClass) sentinel() error {
	switch c {
	case ErrorClassInvalidKey:
		return ErrInvalidKey
	case ErrorClassInvalidTTL:
		return ErrInvalidTTL
	case ErrorClassSerialization:
		return ErrSerialization
	case ErrorClassBackendUnavailable:
		return ErrBackendUnavailable
	default:
		return nil
	}
}

// IsMiss reports whether err is a cache miss.
func IsMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// IsBackendUnavailable reports whether err is a degraded-cache condition.
func IsBackendUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}

// IsSerialization reports whether err is an encode or decode failure.
func IsSerialization(err error) bool {
	return errors.Is(err, ErrSerialization)
}

// ClassOf returns the class of a cache error, or "" for nil, misses and
// foreign errors.
func ClassOf(err error) ErrorClass {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Class
	}
	return ""
}

// backendError wraps a go-redis failure. redis.Nil must be handled by the
// caller before reaching here.
func backendError(op, key string, err error) error {
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	return &Error{Op: op, Key: key, Class: ErrorClassBackendUnavailable, Err: err}
}
