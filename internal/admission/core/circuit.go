// Package core provides the circuit breaker guarding the counter store.
package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// CircuitState represents breaker state.
type CircuitState int32

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// String returns the lowercase state name.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitOptions configures breaker thresholds.
type CircuitOptions struct {
	FailureThreshold int64
	ResetTimeout     time.Duration
	HalfOpenProbes   int64
}

// CircuitBreaker tracks consecutive failures against the counter store
// and stops calling it once a threshold is crossed. State is process
// local: instances of the same service each run their own breaker, so a
// backend outage is detected independently per instance. That is a known
// limitation of the deployment model, not something callers can rely on
// being shared.
type CircuitBreaker struct {
	state            atomic.Int32
	lastFailure      atomic.Int64
	openUntil        atomic.Int64
	failures         atomic.Int64
	halfOpenInFlight atomic.Int64
	opts             CircuitOptions
	now              func() time.Time
}

// NewCircuitBreaker constructs a breaker with defaults applied.
func NewCircuitBreaker(opts CircuitOptions) *CircuitBreaker {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 5
	}
	if opts.ResetTimeout <= 0 {
		opts.ResetTimeout = time.Second
	}
	if opts.HalfOpenProbes <= 0 {
		opts.HalfOpenProbes = 1
	}
	cb := &CircuitBreaker{opts: opts, now: time.Now}
	cb.state.Store(int32(CircuitClosed))
	return cb
}

// Execute runs fn through the breaker. When the breaker is open the call
// is not attempted and ErrStoreUnavailable is returned immediately; a
// failing fn is also surfaced as ErrStoreUnavailable so callers see a
// single unavailability signal rather than backend errors.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) (*CounterResult, error)) (*CounterResult, error) {
	if fn == nil {
		return nil, ErrInvalidInput
	}
	if cb != nil && !cb.Allow() {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, ErrBreakerOpen)
	}
	result, err := fn(ctx)
	if err != nil {
		cb.OnFailure()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	cb.OnSuccess()
	return result, nil
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() CircuitState {
	if cb == nil {
		return CircuitClosed
	}
	return CircuitState(cb.state.Load())
}

// Failures returns the consecutive failure count.
func (cb *CircuitBreaker) Failures() int64 {
	if cb == nil {
		return 0
	}
	return cb.failures.Load()
}

// Allow reports whether a call should proceed, transitioning an expired
// open state to half-open.
func (cb *CircuitBreaker) Allow() bool {
	if cb == nil {
		return true
	}
	switch CircuitState(cb.state.Load()) {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().UnixNano() >= cb.openUntil.Load() {
			if cb.state.CompareAndSwap(int32(CircuitOpen), int32(CircuitHalfOpen)) {
				cb.halfOpenInFlight.Store(0)
			}
			return cb.probe()
		}
		return false
	case CircuitHalfOpen:
		return cb.probe()
	default:
		return true
	}
}

func (cb *CircuitBreaker) probe() bool {
	inFlight := cb.halfOpenInFlight.Add(1)
	if inFlight <= cb.opts.HalfOpenProbes {
		return true
	}
	cb.halfOpenInFlight.Add(-1)
	return false
}

// OnSuccess records a successful call.
func (cb *CircuitBreaker) OnSuccess() {
	if cb == nil {
		return
	}
	switch CircuitState(cb.state.Load()) {
	case CircuitHalfOpen:
		cb.halfOpenInFlight.Add(-1)
		cb.failures.Store(0)
		cb.state.Store(int32(CircuitClosed))
	case CircuitClosed:
		cb.failures.Store(0)
	}
}

// OnFailure records a failure and trips the breaker at the threshold. A
// failure while half-open reopens immediately.
func (cb *CircuitBreaker) OnFailure() {
	if cb == nil {
		return
	}
	now := cb.now()
	cb.lastFailure.Store(now.UnixNano())
	if CircuitState(cb.state.Load()) == CircuitHalfOpen {
		cb.halfOpenInFlight.Add(-1)
		cb.failures.Store(cb.opts.FailureThreshold)
		cb.openUntil.Store(now.Add(cb.opts.ResetTimeout).UnixNano())
		cb.state.Store(int32(CircuitOpen))
		return
	}
	if cb.failures.Add(1) >= cb.opts.FailureThreshold {
		cb.openUntil.Store(now.Add(cb.opts.ResetTimeout).UnixNano())
		cb.state.Store(int32(CircuitOpen))
	}
}
