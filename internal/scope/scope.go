// Package scope resolves the acting-user ownership context into the stable
// scope key used to partition the persistence buffer.
package scope

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidScope reports a scope identifier that cannot be resolved to a
// stable key. It is returned synchronously and never retried.
var ErrInvalidScope = errors.New("scope: invalid scope")

// Resolver validates and normalizes raw scope identifiers.
type Resolver struct {
	re          *regexp.Regexp
	defaultName string
}

// NewResolver compiles the configured scope-name pattern. The pattern is
// anchored; a partial match is not a valid scope.
func NewResolver(pattern, defaultName string) (*Resolver, error) {
	if pattern == "" {
		pattern = "[a-z0-9-_]{1,64}"
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("scope: compile pattern: %w", err)
	}
	return &Resolver{re: re, defaultName: defaultName}, nil
}

// Resolve returns the stable scope key for a raw identifier. An empty
// identifier resolves to the configured default scope; anything not matching
// the pattern yields ErrInvalidScope.
func (r *Resolver) Resolve(raw string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		key = r.defaultName
	}
	if key == "" || !r.re.MatchString(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, raw)
	}
	return key, nil
}
