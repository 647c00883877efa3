// Package ratelimit implements a fixed-window request counter over a shared store.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/code-sleuth/ike-tube/internal/manager/interfaces"
	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidLimit  = errors.New("limit must be positive")
	ErrInvalidWindow = errors.New("window must be at least one second")
)

// Result is the outcome of one counted request.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long a denied caller should wait, relative to now.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed || !r.ResetAt.After(now) {
		return 0
	}
	return r.ResetAt.Sub(now)
}

// Limiter counts requests per identifier in windows aligned to the Unix epoch.
type Limiter struct {
	store  interfaces.CounterStore
	now    func() time.Time
	logger zerolog.Logger
}

// NewLimiter creates a limiter backed by store.
func NewLimiter(store interfaces.CounterStore) *Limiter {
	return NewLimiterWithClock(store, time.Now)
}

// NewLimiterWithClock creates a limiter that reads the current time from now.
func NewLimiterWithClock(store interfaces.CounterStore, now func() time.Time) *Limiter {
	return &Limiter{
		store:  store,
		now:    now,
		logger: util.NewLoggerFromEnv(),
	}
}

// Key returns the store key of identifier's counter in window windowIndex.
func Key(identifier string, windowIndex int64) string {
	return fmt.Sprintf("ratelimit:%s:%d", identifier, windowIndex)
}

// Check counts one request for identifier and reports whether it is within limit
// for the current window of windowSeconds.
func (l *Limiter) Check(ctx context.Context, identifier string, limit, windowSeconds int) (Result, error) {
	if limit <= 0 {
		return Result{}, ErrInvalidLimit
	}
	if windowSeconds <= 0 {
		return Result{}, ErrInvalidWindow
	}

	window := int64(windowSeconds)
	windowIndex := l.now().Unix() / window
	resetAt := time.Unix((windowIndex+1)*window, 0)

	count, err := l.store.Incr(ctx, Key(identifier, windowIndex), time.Duration(windowSeconds)*time.Second)
	if err != nil {
		return Result{}, fmt.Errorf("failed to count request: %w", err)
	}

	result := Result{
		Allowed: count <= int64(limit),
		Limit:   limit,
		ResetAt: resetAt,
	}
	if result.Allowed {
		result.Remaining = limit - int(count)
	} else {
		l.logger.Warn().
			Str("identifier", identifier).
			Int64("count", count).
			Int("limit", limit).
			Msg("Rate limit exceeded")
	}

	return result, nil
}
