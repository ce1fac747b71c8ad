package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testRules(t *testing.T) *PolicyTable {
	t.Helper()
	table, err := NewPolicyTable([]PolicyRule{
		{Service: "menu-service", Endpoint: "listMenus", Policy: Policy{Window: 30 * time.Second, Limit: 50}},
		{Service: "auth-service", Endpoint: "login", Policy: Policy{Window: 60 * time.Second, Limit: 5}},
		{PathPattern: "/v1/menus/*", Method: "GET", Policy: Policy{Window: 30 * time.Second, Limit: 40}},
		{PathPattern: "/v1/menus/*", Policy: Policy{Window: 30 * time.Second, Limit: 20}},
		{PathPattern: "/v1/orders", Method: "POST", Policy: Policy{Window: 60 * time.Second, Limit: 10}},
	}, Policy{Window: 60 * time.Second, Limit: 10})
	require.NoError(t, err)
	return table
}

func TestPolicyTable_ResolveExact(t *testing.T) {
	t.Parallel()

	table := testRules(t)
	policy := table.Resolve("auth-service", "login")
	require.EqualValues(t, 5, policy.Limit)
	require.Equal(t, 60*time.Second, policy.Window)
}

func TestPolicyTable_ResolveFallsBack(t *testing.T) {
	t.Parallel()

	table := testRules(t)
	policy := table.Resolve("menu-service", "unknownEndpoint")
	require.Equal(t, table.Fallback(), policy)
}

func TestPolicyTable_ResolveByPathFirstMatchWins(t *testing.T) {
	t.Parallel()

	table := testRules(t)
	get := table.ResolveByPath("/v1/menus/42", "GET")
	require.EqualValues(t, 40, get.Limit)

	del := table.ResolveByPath("/v1/menus/42", "DELETE")
	require.EqualValues(t, 20, del.Limit, "method-agnostic rule matches after the GET rule")
}

func TestPolicyTable_ResolveByPathWildcard(t *testing.T) {
	t.Parallel()

	table := testRules(t)
	require.EqualValues(t, 40, table.ResolveByPath("/v1/menus/42/items", "GET").Limit,
		"trailing wildcard matches nested segments")
	require.Equal(t, table.Fallback(), table.ResolveByPath("/v2/menus/42", "GET"))
}

func TestPolicyTable_ResolveIsDeterministic(t *testing.T) {
	t.Parallel()

	table := testRules(t)
	first := table.Resolve("menu-service", "listMenus")
	for i := 0; i < 100; i++ {
		require.Equal(t, first, table.Resolve("menu-service", "listMenus"))
	}
}

func TestNewPolicyTable_RejectsInvalidRules(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		rule PolicyRule
	}{
		{"zero limit", PolicyRule{Service: "a", Endpoint: "b", Policy: Policy{Window: time.Second}}},
		{"zero window", PolicyRule{Service: "a", Endpoint: "b", Policy: Policy{Limit: 1}}},
		{"missing endpoint", PolicyRule{Service: "a", Policy: Policy{Window: time.Second, Limit: 1}}},
		{"mixed rule", PolicyRule{Service: "a", Endpoint: "b", PathPattern: "/x", Policy: Policy{Window: time.Second, Limit: 1}}},
		{"empty rule", PolicyRule{Policy: Policy{Window: time.Second, Limit: 1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPolicyTable([]PolicyRule{tc.rule}, DefaultPolicy)
			require.Error(t, err)
		})
	}
}
