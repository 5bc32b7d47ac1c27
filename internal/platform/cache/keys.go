// Package cache provides the in-process read-through caches used by the
// metadata repositories, plus deterministic cache-key generation for methods
// keyed by collections of references or strings.
package cache

import (
	"sort"
	"strings"
)

// KeyDelimiter separates the method name and the canonical elements of a
// generated cache key.
const KeyDelimiter = "|"

// Key builds a cache key for a method keyed by a collection of strings.
// Elements are de-duplicated and sorted before joining, so two calls with the
// same logical set of keys in different input order produce the same key.
func Key(method string, parts ...string) string {
	if len(parts) == 0 {
		return method
	}

	seen := make(map[string]struct{}, len(parts))
	canonical := make([]string, 0, len(parts))
	for _, p := range parts {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		canonical = append(canonical, p)
	}
	sort.Strings(canonical)

	var b strings.Builder
	b.WriteString(method)
	for _, p := range canonical {
		b.WriteString(KeyDelimiter)
		b.WriteString(p)
	}
	return b.String()
}
