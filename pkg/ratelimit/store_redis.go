package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementScript performs the fixed-window check-and-increment atomically on the server.
//
// KEYS[1]  counter hash
// ARGV[1]  limit
// ARGV[2]  window in milliseconds
// ARGV[3]  now in unix milliseconds
// ARGV[4]  reset instant for a new window in unix milliseconds
//
// Returns {admitted (0|1), count, resetAtMillis}.
var incrementScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local now = tonumber(ARGV[3])
local count = tonumber(redis.call("HGET", KEYS[1], "count"))
local reset = tonumber(redis.call("HGET", KEYS[1], "reset_at"))

if count == nil or reset == nil or now >= reset then
	redis.call("HSET", KEYS[1], "count", "1", "reset_at", ARGV[4])
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
	return {1, 1, tonumber(ARGV[4])}
end

if count >= limit then
	return {0, count, reset}
end

count = redis.call("HINCRBY", KEYS[1], "count", 1)
return {1, count, reset}
`)

// RedisStore is a Store shared by every gateway instance connected to the same Redis.
//
// Counters are hashes {count, reset_at} that expire with their window, so Redis
// itself purges stale entries and Cleanup has nothing to do.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a RedisStore. Keys are written as prefix+key.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Increment implements Store.
func (s *RedisStore) Increment(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Entry, bool, error) {
	nowMs := now.UnixMilli()
	res, err := incrementScript.Run(ctx, s.client, []string{s.prefix + key},
		limit,
		window.Milliseconds(),
		nowMs,
		nowMs+window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis increment %s: %w", key, err)
	}
	if len(res) != 3 {
		return Entry{}, false, fmt.Errorf("redis increment %s: unexpected reply length %d", key, len(res))
	}

	entry := Entry{Count: int(res[1]), ResetAt: time.UnixMilli(res[2])}
	return entry, res[0] == 1, nil
}

// Peek implements Store.
func (s *RedisStore) Peek(ctx context.Context, key string) (Entry, bool, error) {
	vals, err := s.client.HMGet(ctx, s.prefix+key, "count", "reset_at").Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis peek %s: %w", key, err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return Entry{}, false, nil
	}

	count, err := strconv.Atoi(fmt.Sprint(vals[0]))
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis peek %s: parse count: %w", key, err)
	}
	resetMs, err := strconv.ParseInt(fmt.Sprint(vals[1]), 10, 64)
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis peek %s: parse reset_at: %w", key, err)
	}

	return Entry{Count: count, ResetAt: time.UnixMilli(resetMs)}, true, nil
}

// Cleanup implements Store. Keys expire in Redis, so nothing is removed here.
func (s *RedisStore) Cleanup(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

// KeyCount implements Store by scanning the key prefix.
func (s *RedisStore) KeyCount(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 500).Result()
		if err != nil {
			return 0, fmt.Errorf("redis scan: %w", err)
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

// Ping checks connectivity to Redis.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
