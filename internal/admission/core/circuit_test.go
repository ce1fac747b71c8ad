package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	t.Parallel()

	now := time.Now()
	cb := NewCircuitBreaker(CircuitOptions{FailureThreshold: 2, ResetTimeout: 30 * time.Millisecond, HalfOpenProbes: 1})
	cb.now = func() time.Time { return now }

	require.True(t, cb.Allow())
	cb.OnFailure()
	cb.OnFailure()
	require.Equal(t, CircuitOpen, cb.State())
	require.False(t, cb.Allow())

	now = now.Add(35 * time.Millisecond)
	require.True(t, cb.Allow(), "expected half-open probe after reset timeout")
	cb.OnSuccess()
	require.Equal(t, CircuitClosed, cb.State())
	require.EqualValues(t, 0, cb.Failures())
	require.True(t, cb.Allow())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	now := time.Now()
	cb := NewCircuitBreaker(CircuitOptions{FailureThreshold: 1, ResetTimeout: 10 * time.Millisecond, HalfOpenProbes: 1})
	cb.now = func() time.Time { return now }

	cb.OnFailure()
	require.Equal(t, CircuitOpen, cb.State())
	now = now.Add(15 * time.Millisecond)
	require.True(t, cb.Allow())
	cb.OnFailure()
	require.Equal(t, CircuitOpen, cb.State())
	require.False(t, cb.Allow())
}

func TestCircuitBreaker_HalfOpenProbeBudget(t *testing.T) {
	t.Parallel()

	now := time.Now()
	cb := NewCircuitBreaker(CircuitOptions{FailureThreshold: 1, ResetTimeout: 10 * time.Millisecond, HalfOpenProbes: 2})
	cb.now = func() time.Time { return now }

	cb.OnFailure()
	now = now.Add(15 * time.Millisecond)
	require.True(t, cb.Allow())
	require.True(t, cb.Allow())
	require.False(t, cb.Allow(), "probe budget exhausted")
}

func TestCircuitBreaker_ExecuteDoesNotInvokeWhenOpen(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitOptions{FailureThreshold: 2, ResetTimeout: time.Minute, HalfOpenProbes: 1})
	boom := errors.New("boom")
	calls := 0
	fail := func(ctx context.Context) (*CounterResult, error) {
		calls++
		return nil, boom
	}

	for i := 0; i < 2; i++ {
		_, err := cb.Execute(context.Background(), fail)
		require.ErrorIs(t, err, ErrStoreUnavailable)
	}
	require.Equal(t, 2, calls)
	require.Equal(t, CircuitOpen, cb.State())

	_, err := cb.Execute(context.Background(), fail)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.Equal(t, 2, calls, "open breaker must not invoke the wrapped call")
}

func TestCircuitBreaker_ExecutePassesThrough(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitOptions{})
	result, err := cb.Execute(context.Background(), func(ctx context.Context) (*CounterResult, error) {
		return &CounterResult{TotalHits: 7}, nil
	})
	require.NoError(t, err)
	require.EqualValues(t, 7, result.TotalHits)
	require.Equal(t, CircuitClosed, cb.State())
}
