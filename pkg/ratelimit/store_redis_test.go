package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "test:"), mr
}

func TestRedisStore_Increment(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)
	window := time.Minute

	e, ok, err := s.Increment(ctx, "ai:u1", 2, window, baseTime)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, e.Count)
	assert.True(t, e.ResetAt.Equal(baseTime.Add(window)), "ResetAt = %v", e.ResetAt)
	assert.True(t, mr.Exists("test:ai:u1"))
	assert.Equal(t, window, mr.TTL("test:ai:u1"))

	e, ok, err = s.Increment(ctx, "ai:u1", 2, window, baseTime.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, e.Count)

	e, ok, err = s.Increment(ctx, "ai:u1", 2, window, baseTime.Add(2*time.Second))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, e.Count)
	assert.True(t, e.ResetAt.Equal(baseTime.Add(window)))

	e, ok, err = s.Increment(ctx, "ai:u1", 2, window, baseTime.Add(window))
	require.NoError(t, err)
	assert.True(t, ok, "window reset admits again")
	assert.Equal(t, 1, e.Count)
}

func TestRedisStore_Increment_Concurrent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, err := s.Increment(ctx, "shared", 10, time.Minute, baseTime); err == nil && ok {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), admitted.Load())
}

func TestRedisStore_Peek(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)

	_, found, err := s.Peek(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = s.Increment(ctx, "k", 5, time.Minute, baseTime)
	require.NoError(t, err)

	e, found, err := s.Peek(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, e.Count)
	assert.True(t, e.ResetAt.Equal(baseTime.Add(time.Minute)))

	mr.FastForward(time.Minute)
	_, found, err = s.Peek(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found, "key expires with its window")
}

func TestRedisStore_KeyCount(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)
	require.NoError(t, mr.Set("unrelated", "1"))

	for _, k := range []string{"a", "b", "c"} {
		_, _, err := s.Increment(ctx, k, 5, time.Minute, baseTime)
		require.NoError(t, err)
	}

	n, err := s.KeyCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	removed, err := s.Cleanup(ctx, baseTime)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestRedisStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)
	require.NoError(t, s.Ping(ctx))

	mr.Close()

	_, _, err := s.Increment(ctx, "k", 5, time.Minute, baseTime)
	assert.Error(t, err)
	assert.Error(t, s.Ping(ctx))
}

func TestLimiter_WithRedisStore(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)
	clock := NewMockClock(baseTime)
	l := NewLimiter(s, WithClock(clock))
	q := Quota{Limit: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow(ctx, "u1", BucketDefault, q).Allowed)
	}
	d := l.Allow(ctx, "u1", BucketDefault, q)
	assert.False(t, d.Allowed)
	assert.Equal(t, 60, d.ResetInSeconds())
	assert.Equal(t, 0, l.Remaining(ctx, Key("u1", BucketDefault), 3))
	assert.Equal(t, 3, l.Remaining(ctx, Key("u2", BucketDefault), 3))
}
