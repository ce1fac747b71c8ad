// Package core provides the bypass counter store.
package core

import (
	"context"
	"time"
)

// DisabledStore admits every request without counting. Selecting it must
// be an explicit, audited configuration choice; it exists for controlled
// load testing and is never a default.
type DisabledStore struct{}

// Increment implements CounterStore. It reports a single hit and no block.
func (DisabledStore) Increment(ctx context.Context, key string, window time.Duration, limit int64, blockDuration time.Duration) (*CounterResult, error) {
	return &CounterResult{TotalHits: 1, TimeToExpire: window}, nil
}

// Reset implements CounterStore.
func (DisabledStore) Reset(ctx context.Context, key string) (bool, error) {
	return false, nil
}

// Close implements CounterStore.
func (DisabledStore) Close() error { return nil }
