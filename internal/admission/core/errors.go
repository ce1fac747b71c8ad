// Package core defines sentinel errors.
package core

import "errors"

// ErrInvalidInput indicates validation failures.
var ErrInvalidInput = errors.New("invalid input")

// ErrStoreUnavailable indicates the counter store could not be reached,
// either because the circuit breaker is open or the call itself failed.
var ErrStoreUnavailable = errors.New("counter store unavailable")

// ErrBreakerOpen indicates the circuit breaker refused the call without
// attempting the store. It always wraps ErrStoreUnavailable.
var ErrBreakerOpen = errors.New("circuit breaker open")
