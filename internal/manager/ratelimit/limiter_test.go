package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/code-sleuth/ike-tube/internal/manager/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func newTestLimiter(start time.Time) (*Limiter, *clock) {
	c := &clock{now: start}
	s := store.NewMemoryStoreWithClock(c.Now)
	return NewLimiterWithClock(s, c.Now), c
}

func TestCheck_AllowsUpToLimitThenDenies(t *testing.T) {
	// 1_700_000_040 is aligned to a 60 second window
	start := time.Unix(1_700_000_040, 0)
	limiter, c := newTestLimiter(start)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		result, err := limiter.Check(ctx, "10.0.0.1", 3, 60)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i)
		assert.Equal(t, 3-i, result.Remaining)
		assert.Equal(t, start.Add(60*time.Second), result.ResetAt)
	}

	c.now = start.Add(59 * time.Second)
	denied, err := limiter.Check(ctx, "10.0.0.1", 3, 60)
	require.NoError(t, err)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 0, denied.Remaining)
	assert.Equal(t, time.Second, denied.RetryAfter(c.now))

	c.now = start.Add(60 * time.Second)
	rolled, err := limiter.Check(ctx, "10.0.0.1", 3, 60)
	require.NoError(t, err)
	assert.True(t, rolled.Allowed, "a new window should reset the count")
	assert.Equal(t, 2, rolled.Remaining)
}

func TestCheck_IdentifiersAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(time.Unix(1_700_000_040, 0))
	ctx := context.Background()

	first, err := limiter.Check(ctx, "a", 1, 60)
	require.NoError(t, err)
	assert.True(t, first.Allowed)

	second, err := limiter.Check(ctx, "b", 1, 60)
	require.NoError(t, err)
	assert.True(t, second.Allowed)

	again, err := limiter.Check(ctx, "a", 1, 60)
	require.NoError(t, err)
	assert.False(t, again.Allowed)
}

func TestCheck_InvalidArguments(t *testing.T) {
	limiter, _ := newTestLimiter(time.Unix(0, 0))

	tests := []struct {
		description   string
		limit, window int
		want          error
	}{
		{description: "zero limit", limit: 0, window: 60, want: ErrInvalidLimit},
		{description: "negative window", limit: 10, window: -1, want: ErrInvalidWindow},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			_, err := limiter.Check(context.Background(), "id", tt.limit, tt.window)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func (failingStore) SetIfAbsent(context.Context, string, string, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func (failingStore) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

func TestCheck_StoreFailure(t *testing.T) {
	limiter := NewLimiterWithClock(failingStore{}, time.Now)
	_, err := limiter.Check(context.Background(), "id", 10, 60)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "ratelimit:203.0.113.9:28333334", Key("203.0.113.9", 28333334))
}
