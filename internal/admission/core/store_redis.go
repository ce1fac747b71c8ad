// Package core provides the shared counter store backed by redis.
package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementScript performs the whole increment atomically: first hit sets
// the window expiry, later hits reuse it; exceeding the limit writes a
// companion block key whose lifetime is independent of the window. While
// the block key lives, hits are reported without further counting.
// Reply: {hits, windowTTLms, blocked, blockTTLms}.
var incrementScript = redis.NewScript(`
local blockTTL = redis.call('PTTL', KEYS[2])
if blockTTL > 0 then
  local hits = tonumber(redis.call('GET', KEYS[1]) or '0')
  local ttl = redis.call('PTTL', KEYS[1])
  if ttl < 0 then ttl = 0 end
  return {hits, ttl, 1, blockTTL}
end
local hits = redis.call('INCR', KEYS[1])
if hits == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
if hits > tonumber(ARGV[2]) and tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[2], '1', 'PX', ARGV[3])
  return {hits, ttl, 1, tonumber(ARGV[3])}
end
return {hits, ttl, 0, 0}
`)

// RedisClient is the slice of the go-redis API the store depends on.
// *redis.Client and *redis.ClusterClient both satisfy it.
type RedisClient interface {
	redis.Scripter
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisStore is a CounterStore backed by a shared redis instance. Every
// call carries a bounded timeout so a stalled backend surfaces as an
// error for the circuit breaker instead of stalling request goroutines.
type RedisStore struct {
	client  RedisClient
	prefix  string
	timeout time.Duration
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix overrides the redis key prefix.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

// WithCallTimeout overrides the per-call timeout.
func WithCallTimeout(d time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewRedisStore constructs a RedisStore around an existing client.
func NewRedisStore(client RedisClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:  client,
		prefix:  "admission",
		timeout: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Increment implements CounterStore.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration, limit int64, blockDuration time.Duration) (*CounterResult, error) {
	if s == nil || s.client == nil {
		return nil, ErrStoreUnavailable
	}
	if key == "" || limit <= 0 {
		return nil, ErrInvalidInput
	}
	if window <= 0 {
		window = time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	counterKey := s.counterKey(key)
	reply, err := incrementScript.Run(callCtx, s.client,
		[]string{counterKey, counterKey + ":blocked"},
		window.Milliseconds(), limit, blockDuration.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis increment: %w", err)
	}
	if len(reply) != 4 {
		return nil, fmt.Errorf("redis increment: unexpected reply length %d", len(reply))
	}
	return &CounterResult{
		TotalHits:         reply[0],
		TimeToExpire:      time.Duration(reply[1]) * time.Millisecond,
		Blocked:           reply[2] == 1,
		TimeToBlockExpire: time.Duration(reply[3]) * time.Millisecond,
	}, nil
}

// Reset implements CounterStore.
func (s *RedisStore) Reset(ctx context.Context, key string) (bool, error) {
	if s == nil || s.client == nil {
		return false, ErrStoreUnavailable
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	counterKey := s.counterKey(key)
	removed, err := s.client.Del(callCtx, counterKey, counterKey+":blocked").Result()
	if err != nil {
		return false, fmt.Errorf("redis reset: %w", err)
	}
	return removed > 0, nil
}

// Ping reports backend reachability, for readiness checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return ErrStoreUnavailable
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Ping(callCtx).Err()
}

// Close implements CounterStore. The client is owned by the caller.
func (s *RedisStore) Close() error { return nil }

func (s *RedisStore) counterKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}
