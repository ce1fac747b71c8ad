// Package core provides rate limit policy resolution.
package core

import (
	"errors"
	"strings"
	"time"
)

// Policy is an immutable fixed-window rate limit policy.
type Policy struct {
	Window time.Duration
	Limit  int64
}

// DefaultPolicy applies when no rule matches a request.
var DefaultPolicy = Policy{Window: 60 * time.Second, Limit: 10}

// PolicyRule binds a policy to a protected operation. Exact rules name a
// service and endpoint; pattern rules name a path pattern and HTTP method.
// A rule carries one or the other, never both.
type PolicyRule struct {
	Service     string
	Endpoint    string
	PathPattern string
	Method      string
	Policy      Policy
}

// PolicyTable resolves policies by first-match-wins over an ordered rule
// list. It is read-only after construction; configuration changes require
// a restart.
type PolicyTable struct {
	rules    []PolicyRule
	fallback Policy
}

// NewPolicyTable validates rules and builds a table.
func NewPolicyTable(rules []PolicyRule, fallback Policy) (*PolicyTable, error) {
	if fallback.Window <= 0 || fallback.Limit <= 0 {
		fallback = DefaultPolicy
	}
	for i := range rules {
		rule := &rules[i]
		if rule.Policy.Window <= 0 {
			return nil, errors.New("policy window must be positive")
		}
		if rule.Policy.Limit <= 0 {
			return nil, errors.New("policy limit must be positive")
		}
		exact := rule.Service != "" || rule.Endpoint != ""
		pattern := rule.PathPattern != ""
		if exact && pattern {
			return nil, errors.New("policy rule must not mix service/endpoint and path pattern")
		}
		if exact && (rule.Service == "" || rule.Endpoint == "") {
			return nil, errors.New("policy rule requires both service and endpoint")
		}
		if !exact && !pattern {
			return nil, errors.New("policy rule requires a service/endpoint or a path pattern")
		}
	}
	table := &PolicyTable{
		rules:    make([]PolicyRule, len(rules)),
		fallback: fallback,
	}
	copy(table.rules, rules)
	return table, nil
}

// Resolve returns the policy for a service endpoint.
func (t *PolicyTable) Resolve(service, endpoint string) Policy {
	if t == nil {
		return DefaultPolicy
	}
	for i := range t.rules {
		rule := &t.rules[i]
		if rule.Service == "" {
			continue
		}
		if rule.Service == service && rule.Endpoint == endpoint {
			return rule.Policy
		}
	}
	return t.fallback
}

// ResolveByPath returns the policy for a request path and method.
func (t *PolicyTable) ResolveByPath(path, method string) Policy {
	if t == nil {
		return DefaultPolicy
	}
	for i := range t.rules {
		rule := &t.rules[i]
		if rule.PathPattern == "" {
			continue
		}
		if rule.Method != "" && !strings.EqualFold(rule.Method, method) {
			continue
		}
		if matchPath(rule.PathPattern, path) {
			return rule.Policy
		}
	}
	return t.fallback
}

// Fallback returns the table's default policy.
func (t *PolicyTable) Fallback() Policy {
	if t == nil {
		return DefaultPolicy
	}
	return t.fallback
}

// matchPath matches a request path against a pattern. A "*" segment
// matches exactly one path segment; a trailing "*" matches the rest of
// the path.
func matchPath(pattern, path string) bool {
	patternParts := splitPath(pattern)
	pathParts := splitPath(path)
	for i, part := range patternParts {
		if part == "*" && i == len(patternParts)-1 {
			return len(pathParts) >= i
		}
		if i >= len(pathParts) {
			return false
		}
		if part == "*" {
			continue
		}
		if !strings.EqualFold(part, pathParts[i]) {
			return false
		}
	}
	return len(pathParts) == len(patternParts)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
