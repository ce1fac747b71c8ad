package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryStore_LimitBoundary(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		result, err := store.Increment(ctx, "svc:ip1:/a", time.Minute, 3, 0)
		require.NoError(t, err)
		require.Equal(t, i, result.TotalHits)
		require.False(t, result.Blocked)
	}
	result, err := store.Increment(ctx, "svc:ip1:/a", time.Minute, 3, 0)
	require.NoError(t, err)
	require.EqualValues(t, 4, result.TotalHits, "the (L+1)-th hit exceeds the limit")
	require.LessOrEqual(t, result.TimeToExpire, time.Minute)
}

func TestMemoryStore_WindowReset(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	store := NewMemoryStore(WithClock(clock.Now))
	defer store.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Increment(ctx, "k", time.Minute, 3, 0)
		require.NoError(t, err)
	}
	clock.Advance(61 * time.Second)
	result, err := store.Increment(ctx, "k", time.Minute, 3, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, result.TotalHits, "fresh window restarts the count")
}

func TestMemoryStore_BlockOutlivesWindow(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	store := NewMemoryStore(WithClock(clock.Now))
	defer store.Close()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := store.Increment(ctx, "k", 10*time.Second, 3, 5*time.Minute)
		require.NoError(t, err)
	}

	// The hit window lapses, the block does not.
	clock.Advance(30 * time.Second)
	result, err := store.Increment(ctx, "k", 10*time.Second, 3, 5*time.Minute)
	require.NoError(t, err)
	require.True(t, result.Blocked)
	require.Greater(t, result.TimeToBlockExpire, time.Duration(0))

	clock.Advance(5 * time.Minute)
	result, err = store.Increment(ctx, "k", 10*time.Second, 3, 5*time.Minute)
	require.NoError(t, err)
	require.False(t, result.Blocked, "block expired")
	require.EqualValues(t, 1, result.TotalHits)
}

func TestMemoryStore_ConcurrentIncrementsLoseNothing(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := store.Increment(ctx, "hot", time.Minute, 1_000_000, 0)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	result, err := store.Increment(ctx, "hot", time.Minute, 1_000_000, 0)
	require.NoError(t, err)
	require.EqualValues(t, n+1, result.TotalHits)
}

func TestMemoryStore_SweepKeepsBlockedRecords(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	store := NewMemoryStore(WithClock(clock.Now))
	defer store.Close()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := store.Increment(ctx, "blocked", 10*time.Second, 3, 10*time.Minute)
		require.NoError(t, err)
	}
	_, err := store.Increment(ctx, "plain", 10*time.Second, 3, 0)
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	clock.Advance(time.Minute)
	store.sweep()
	require.Equal(t, 1, store.Len(), "the blocked record must survive the sweep")

	clock.Advance(10 * time.Minute)
	store.sweep()
	require.Equal(t, 0, store.Len())
}

func TestMemoryStore_Reset(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.Increment(ctx, "k", time.Minute, 3, 0)
	require.NoError(t, err)

	removed, err := store.Reset(ctx, "k")
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = store.Reset(ctx, "k")
	require.NoError(t, err)
	require.False(t, removed)

	result, err := store.Increment(ctx, "k", time.Minute, 3, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, result.TotalHits)
}
