package cache

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const (
	// KeySeparator separates the namespace and discriminator segments of a key.
	KeySeparator = ":"

	// MaxKeyLength bounds the length of a caller-supplied key.
	MaxKeyLength = 512

	// paramsSegmentPrefix marks the hashed query-parameter segment.
	paramsSegmentPrefix = "p="
)

// globMeta are the characters Redis MATCH treats specially. They are
// forbidden inside keys so every key can be addressed literally by a pattern.
const globMeta = `*?[]\`

// Key is a structured cache key: a mandatory namespace followed by
// discriminator parts and an optional parameter set.
type Key struct {
	// Namespace identifies the owning feature, e.g. "analytics:payments-summary".
	Namespace string

	// Parts are the discriminator segments (entity ID, period, ...).
	Parts []string

	// Params are query parameters. They are reduced to a single hashed
	// segment so that equal parameter sets produce equal keys.
	Params map[string]string
}

// NewKey creates a Key in the given namespace.
func NewKey(namespace string, parts ...string) Key {
	return Key{Namespace: namespace, Parts: parts}
}

// WithParams returns a copy of k carrying params.
func (k Key) WithParams(params map[string]string) Key {
	k.Params = params
	return k
}

// String generates a deterministic cache key string.
// Format: namespace:part1:part2:p=<hash>
//
// Example:
//
//	analytics:payments-summary:2024-01:P1
func (k Key) String() string {
	parts := []string{strings.Trim(k.Namespace, KeySeparator)}
	parts = append(parts, k.Parts...)

	if len(k.Params) > 0 {
		parts = append(parts, paramsSegmentPrefix+HashParams(k.Params))
	}

	return strings.Join(parts, KeySeparator)
}

// Validate reports whether the key conforms to the key grammar. Each part
// must be a single segment so that keys from different namespaces never
// collide.
func (k Key) Validate() error {
	for _, part := range k.Parts {
		if reason := partProblem(part); reason != "" {
			return invalidKey(k.String(), reason)
		}
	}
	return ValidateKey(k.String())
}

// ValidatePart checks a single discriminator segment such as an entity ID.
// Besides the character rules of ValidateKey it rejects KeySeparator.
func ValidatePart(part string) error {
	if reason := partProblem(part); reason != "" {
		return invalidKey(part, reason)
	}
	return nil
}

func partProblem(part string) string {
	if part == "" {
		return "empty segment"
	}
	if strings.Contains(part, KeySeparator) {
		return fmt.Sprintf("segment contains separator %q", KeySeparator)
	}
	return charProblem(part)
}

// HashParams returns a stable 16 hex digit xxhash64 of params, sorted by name.
func HashParams(params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	// Length-prefixed so that no value can mimic a parameter boundary.
	d := xxhash.New()
	for _, name := range names {
		value := params[name]
		_, _ = d.WriteString(strconv.Itoa(len(name)) + ":" + name)
		_, _ = d.WriteString(strconv.Itoa(len(value)) + ":" + value)
	}

	return fmt.Sprintf("%016x", d.Sum64())
}

// Namespace returns the first segment of a raw key.
func Namespace(key string) string {
	if i := strings.Index(key, KeySeparator); i >= 0 {
		return key[:i]
	}
	return key
}

// ValidateKey checks a raw key against the key grammar:
// <namespace>:<segment>[:<segment>...], no empty segments, no whitespace,
// no glob metacharacters, at most MaxKeyLength bytes.
func ValidateKey(key string) error {
	if key == "" {
		return invalidKey(key, "empty key")
	}
	if len(key) > MaxKeyLength {
		return invalidKey(key, "key exceeds "+strconv.Itoa(MaxKeyLength)+" bytes")
	}
	if !strings.Contains(key, KeySeparator) {
		return invalidKey(key, "missing namespace prefix")
	}

	for _, segment := range strings.Split(key, KeySeparator) {
		if segment == "" {
			return invalidKey(key, "empty segment")
		}
	}

	if reason := charProblem(key); reason != "" {
		return invalidKey(key, reason)
	}

	return nil
}

func charProblem(s string) string {
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "whitespace or control character"
		}
		if strings.ContainsRune(globMeta, r) {
			return fmt.Sprintf("glob metacharacter %q", r)
		}
	}
	return ""
}

func invalidKey(key, reason string) error {
	return &Error{Op: "validate", Key: key, Class: ErrorClassInvalidKey, Err: fmt.Errorf("%s", reason)}
}
