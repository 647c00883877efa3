// Package store holds the shared counters and markers behind rate limiting and
// idempotency.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore implements interfaces.CounterStore on Redis.
type RedisStore struct {
	client redis.UniversalClient
	logger zerolog.Logger
}

// NewRedisStore connects to the Redis instance at redisURL (redis://host:port/db).
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		logger: util.NewLoggerFromEnv(),
	}
}

// incrScript increments KEYS[1] and gives it a TTL of ARGV[1] milliseconds
// when it has none. It runs atomically and needs no Redis 7 EXPIRE options.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Incr increments key and sets its expiry when the key has none, so the TTL
// is fixed by the first increment of a window.
func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := incrScript.Run(ctx, s.client, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to increment counter")
		return 0, err
	}
	return count, nil
}

// SetIfAbsent stores value under key only when the key does not exist.
func (s *RedisStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	err := s.client.SetArgs(ctx, key, value, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to set marker")
		return false, err
	}
	return true, nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
