// Package core provides request key construction.
package core

import "strings"

// KeyBuilder builds counter keys scoped by microservice name so
// identical paths on different services never share a counter.
type KeyBuilder struct {
	scope string
}

// NewKeyBuilder constructs a builder with a service scope.
func NewKeyBuilder(scope string) *KeyBuilder {
	return &KeyBuilder{scope: strings.Trim(scope, ":")}
}

// Build composes a counter key from the caller identity and the
// normalized endpoint. Two requests with an identical key share a
// counter.
func (kb *KeyBuilder) Build(caller, endpoint string) string {
	scope := ""
	if kb != nil {
		scope = kb.scope
	}
	var b strings.Builder
	b.Grow(len(scope) + len(caller) + len(endpoint) + 2)
	if scope != "" {
		b.WriteString(scope)
		b.WriteByte(':')
	}
	b.WriteString(caller)
	b.WriteByte(':')
	b.WriteString(NormalizePath(endpoint))
	return b.String()
}

// NormalizePath canonicalizes a request path for keying: lowercased,
// collapsed slashes, no trailing slash.
func NormalizePath(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return "/"
	}
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
