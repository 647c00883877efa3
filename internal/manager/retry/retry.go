// Package retry runs outbound calls with bounded, jittered exponential backoff.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
	defaultJitter      = 500 * time.Millisecond
)

var ErrInvalidAttempts = errors.New("max attempts must be positive")

// Predicate reports whether a failed attempt may be repeated.
type Predicate func(err error) bool

// Options bound a retried call. A zero Jitter disables jitter.
type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      time.Duration
	IsRetryable Predicate
}

// DefaultOptions retries transient failures three times starting at 500ms.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: defaultMaxAttempts,
		BaseDelay:   defaultBaseDelay,
		Jitter:      defaultJitter,
		IsRetryable: IsTransient,
	}
}

// NewOptions builds options from configuration, keeping the default jitter and policy.
func NewOptions(maxAttempts int, baseDelay time.Duration) Options {
	opts := DefaultOptions()
	if maxAttempts > 0 {
		opts.MaxAttempts = maxAttempts
	}
	if baseDelay > 0 {
		opts.BaseDelay = baseDelay
	}
	return opts
}

// Backoff returns the delay before retrying after attempt n (0-indexed):
// BaseDelay * 2^n plus a random jitter in [0, Jitter).
func (o Options) Backoff(attempt int) time.Duration {
	delay := o.BaseDelay << attempt
	if o.Jitter > 0 {
		delay += rand.N(o.Jitter)
	}
	return delay
}

// sleep is swapped in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do invokes op until it succeeds, returns a non-retryable error, or runs out of
// attempts. The last error from op is returned unchanged.
func Do(ctx context.Context, opts Options, op func(ctx context.Context) error) error {
	_, err := DoValue(ctx, opts, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if opts.MaxAttempts <= 0 {
		return zero, ErrInvalidAttempts
	}
	isRetryable := opts.IsRetryable
	if isRetryable == nil {
		isRetryable = IsTransient
	}

	for attempt := 0; ; attempt++ {
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		if attempt+1 >= opts.MaxAttempts || !isRetryable(err) {
			return zero, err
		}
		if sleepErr := sleep(ctx, opts.Backoff(attempt)); sleepErr != nil {
			// the caller gave up; report the provider failure, not the cancellation
			return zero, err
		}
	}
}
