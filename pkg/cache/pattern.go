package cache

import (
	"fmt"
	"strings"
	"unicode"
)

// Pattern is an invalidation scope in Redis glob syntax. Only '*' (any
// sequence, separators included) and '?' (any single byte) are supported.
type Pattern string

// NewPattern builds a pattern from a literal namespace and parts, which may
// contain wildcards.
//
//	NewPattern("analytics", "*", "P1") == "analytics:*:P1"
func NewPattern(namespace string, parts ...string) Pattern {
	segments := append([]string{namespace}, parts...)
	return Pattern(strings.Join(segments, KeySeparator))
}

// String returns the raw pattern.
func (p Pattern) String() string { return string(p) }

// Validate rejects patterns that are not anchored to a literal namespace.
// "analytics:*" is valid; "*", "analytics*" and "*:P1" are not.
func (p Pattern) Validate() error {
	raw := string(p)
	if raw == "" {
		return invalidPattern(raw, "empty pattern")
	}
	if len(raw) > MaxKeyLength {
		return invalidPattern(raw, "pattern too long")
	}

	i := strings.Index(raw, KeySeparator)
	if i <= 0 {
		return invalidPattern(raw, "missing literal namespace prefix")
	}
	if strings.ContainsAny(raw[:i], globMeta) {
		return invalidPattern(raw, "namespace must be literal")
	}
	if i == len(raw)-1 {
		return invalidPattern(raw, "empty pattern after namespace")
	}

	for _, r := range raw {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return invalidPattern(raw, "whitespace or control character")
		}
		if r == '[' || r == ']' || r == '\\' {
			return invalidPattern(raw, fmt.Sprintf("unsupported metacharacter %q", r))
		}
	}

	return nil
}

// Matches reports whether key falls inside the pattern's scope.
func (p Pattern) Matches(key string) bool {
	return globMatch(string(p), key)
}

// globMatch implements the '*' and '?' subset of Redis stringmatchlen.
func globMatch(pattern, s string) bool {
	px, sx := 0, 0
	starPx, starSx := -1, 0

	for sx < len(s) {
		switch {
		case px < len(pattern) && pattern[px] == '*':
			starPx, starSx = px, sx
			px++
		case px < len(pattern) && (pattern[px] == '?' || pattern[px] == s[sx]):
			px++
			sx++
		case starPx >= 0:
			starSx++
			px, sx = starPx+1, starSx
		default:
			return false
		}
	}

	for px < len(pattern) && pattern[px] == '*' {
		px++
	}
	return px == len(pattern)
}

func invalidPattern(pattern, reason string) error {
	return &Error{Op: "invalidate", Key: pattern, Class: ErrorClassInvalidKey, Err: fmt.Errorf("%s", reason)}
}
