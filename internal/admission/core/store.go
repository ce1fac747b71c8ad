// Package core defines the counter store contract.
package core

import (
	"context"
	"time"
)

// CounterStore counts hits per key within a fixed window and tracks
// block state. Implementations must be safe for concurrent use and
// guarantee that N concurrent increments against a fresh key produce a
// final count of exactly N.
//
// All durations are time.Duration end to end; configuration layers
// convert from seconds or milliseconds at their own boundary.
type CounterStore interface {
	// Increment records one hit for key within the current window. When
	// the incremented count exceeds limit and blockDuration is positive,
	// the key enters a block that outlives window resets.
	Increment(ctx context.Context, key string, window time.Duration, limit int64, blockDuration time.Duration) (*CounterResult, error)

	// Reset clears the counter and any block for key. It reports whether
	// anything was removed.
	Reset(ctx context.Context, key string) (bool, error)

	// Close releases background resources.
	Close() error
}

// CounterResult reports counter state after an increment.
type CounterResult struct {
	TotalHits         int64
	TimeToExpire      time.Duration
	Blocked           bool
	TimeToBlockExpire time.Duration
}
