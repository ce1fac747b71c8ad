// Package core provides the in-process counter store.
package core

import (
	"context"
	"sync"
	"time"
)

const defaultSweepInterval = 60 * time.Second

type counterRecord struct {
	hits          int64
	windowExpires time.Time
	blockedUntil  time.Time
}

// MemoryStore is a single-process CounterStore backed by a mutex-protected
// map. A background sweep removes records once both the window and any
// block period have elapsed. It is the default backend and the one used in
// single-instance deployments.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*counterRecord
	now     func() time.Time

	sweepInterval time.Duration
	done          chan struct{}
	closeOnce     sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithSweepInterval overrides the sweep cadence.
func WithSweepInterval(d time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithClock overrides the store's clock.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore constructs a MemoryStore and starts its sweep goroutine.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		records:       make(map[string]*counterRecord),
		now:           time.Now,
		sweepInterval: defaultSweepInterval,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.sweepLoop()
	return s
}

// Increment implements CounterStore.
func (s *MemoryStore) Increment(ctx context.Context, key string, window time.Duration, limit int64, blockDuration time.Duration) (*CounterResult, error) {
	if s == nil {
		return nil, ErrStoreUnavailable
	}
	if key == "" || limit <= 0 {
		return nil, ErrInvalidInput
	}
	if window <= 0 {
		window = time.Second
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.records[key]
	if record == nil {
		record = &counterRecord{windowExpires: now.Add(window)}
		s.records[key] = record
	}

	// An active block wins over everything, including a lapsed window.
	if record.blockedUntil.After(now) {
		return &CounterResult{
			TotalHits:         record.hits,
			TimeToExpire:      nonNegative(record.windowExpires.Sub(now)),
			Blocked:           true,
			TimeToBlockExpire: record.blockedUntil.Sub(now),
		}, nil
	}

	if !record.windowExpires.After(now) {
		record.hits = 0
		record.windowExpires = now.Add(window)
	}
	record.hits++

	result := &CounterResult{
		TotalHits:    record.hits,
		TimeToExpire: nonNegative(record.windowExpires.Sub(now)),
	}
	if record.hits > limit && blockDuration > 0 {
		record.blockedUntil = now.Add(blockDuration)
		result.Blocked = true
		result.TimeToBlockExpire = blockDuration
	}
	return result, nil
}

// Reset implements CounterStore.
func (s *MemoryStore) Reset(ctx context.Context, key string) (bool, error) {
	if s == nil {
		return false, ErrStoreUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return false, nil
	}
	delete(s.records, key)
	return true, nil
}

// Close stops the sweep goroutine.
func (s *MemoryStore) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// Len reports the number of live records.
func (s *MemoryStore) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep removes records whose window and block period have both elapsed.
// Records with a live block are kept even when their window has lapsed.
func (s *MemoryStore) sweep() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, record := range s.records {
		if record.windowExpires.After(now) {
			continue
		}
		if record.blockedUntil.After(now) {
			continue
		}
		delete(s.records, key)
	}
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
