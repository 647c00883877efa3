package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/code-sleuth/ike-tube/internal/manager/interfaces"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreWithClient(client), server
}

func TestRedisStore_Incr(t *testing.T) {
	s, server := newRedisStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.Incr(ctx, "ratelimit:ip:1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	ttl := server.TTL("ratelimit:ip:1")
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	server.FastForward(2 * time.Minute)
	got, err := s.Incr(ctx, "ratelimit:ip:1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got, "counter should restart after expiry")
}

func TestRedisStore_IncrRepairsMissingTTL(t *testing.T) {
	s, server := newRedisStore(t)
	require.NoError(t, server.Set("ratelimit:ip:2", "4"))

	got, err := s.Incr(context.Background(), "ratelimit:ip:2", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)
	assert.Greater(t, server.TTL("ratelimit:ip:2"), time.Duration(0))
}

func TestRedisStore_SetIfAbsent(t *testing.T) {
	s, server := newRedisStore(t)
	ctx := context.Background()

	ok, err := s.SetIfAbsent(ctx, "idempotency:k", "PROCESSING", 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetIfAbsent(ctx, "idempotency:k", "PROCESSING", 2*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	value, err := server.Get("idempotency:k")
	require.NoError(t, err)
	assert.Equal(t, "PROCESSING", value)

	require.NoError(t, s.Delete(ctx, "idempotency:k"))
	ok, err = s.SetIfAbsent(ctx, "idempotency:k", "PROCESSING", 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestMemoryStore_Expiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewMemoryStoreWithClock(func() time.Time { return now })
	ctx := context.Background()

	count, err := s.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	now = now.Add(30 * time.Second)
	count, _ = s.Incr(ctx, "k", time.Minute)
	assert.Equal(t, int64(2), count, "increment must not extend the ttl")

	now = now.Add(31 * time.Second)
	count, _ = s.Incr(ctx, "k", time.Minute)
	assert.Equal(t, int64(1), count)

	ok, _ := s.SetIfAbsent(ctx, "m", "PROCESSING", time.Second)
	assert.True(t, ok)
	value, found := s.Get("m")
	assert.True(t, found)
	assert.Equal(t, "PROCESSING", value)

	now = now.Add(time.Second)
	_, found = s.Get("m")
	assert.False(t, found)
}

func TestMemoryStore_SweepsKeysThatAreNeverReadAgain(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewMemoryStoreWithClock(func() time.Time { return now })
	ctx := context.Background()

	for window := range 1000 {
		_, err := s.Incr(ctx, fmt.Sprintf("ratelimit:client:%d", window), time.Minute)
		require.NoError(t, err)
	}
	assert.Equal(t, 1000, s.Len())

	now = now.Add(24 * time.Hour)
	_, err := s.Incr(ctx, "ratelimit:client:next", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len(), "expired windows must be swept")

	ok, err := s.SetIfAbsent(ctx, "idempotency:forever", "PROCESSING", 0)
	require.NoError(t, err)
	assert.True(t, ok)
	now = now.Add(24 * time.Hour)
	_, _ = s.Incr(ctx, "ratelimit:client:later", time.Minute)
	_, found := s.Get("idempotency:forever")
	assert.True(t, found, "entries without a ttl are never swept")
}

func TestStores_ConcurrentIncrement(t *testing.T) {
	redisStore, _ := newRedisStore(t)
	stores := map[string]interfaces.CounterStore{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			const workers = 25
			var wg sync.WaitGroup
			wg.Add(workers)
			for i := 0; i < workers; i++ {
				go func() {
					defer wg.Done()
					_, err := s.Incr(context.Background(), "shared", time.Minute)
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			count, err := s.Incr(context.Background(), "shared", time.Minute)
			require.NoError(t, err)
			assert.Equal(t, int64(workers+1), count)
		})
	}
}
