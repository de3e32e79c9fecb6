package batching

import "strings"

// MatcherFunc adapts a plain predicate to the Matcher interface.
type MatcherFunc func(path string) bool

// Batchable calls f(path).
func (f MatcherFunc) Batchable(path string) bool {
	return f(path)
}

// PrefixMatcher accepts paths under any of a set of prefixes. A prefix
// matches itself and anything below it on a segment boundary, so
// "/api/v1/documents" matches "/api/v1/documents/42" but not
// "/api/v1/documents-archive". Query strings are ignored.
type PrefixMatcher struct {
	prefixes []string
}

// NewPrefixMatcher builds a matcher from path prefixes. Trailing slashes are
// trimmed; empty prefixes are ignored.
func NewPrefixMatcher(prefixes ...string) *PrefixMatcher {
	m := &PrefixMatcher{}
	for _, p := range prefixes {
		p = strings.TrimRight(p, "/")
		if p == "" {
			continue
		}
		m.prefixes = append(m.prefixes, p)
	}
	return m
}

// Batchable reports whether path falls under one of the prefixes.
func (m *PrefixMatcher) Batchable(path string) bool {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	for _, p := range m.prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
