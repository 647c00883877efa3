package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordSleeps replaces the package sleep for the duration of a test.
func recordSleeps(t *testing.T) *[]time.Duration {
	t.Helper()
	var delays []time.Duration
	original := sleep
	sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	t.Cleanup(func() { sleep = original })
	return &delays
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	delays := recordSleeps(t)
	calls := 0

	err := Do(context.Background(), Options{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond, IsRetryable: IsTransient},
		func(context.Context) error {
			calls++
			if calls <= 2 {
				return NewStatusError(http.StatusServiceUnavailable, nil)
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *delays)
}

func TestDo_NonRetryableFailsOnce(t *testing.T) {
	recordSleeps(t)
	calls := 0
	badRequest := NewStatusError(http.StatusBadRequest, errors.New("bad input"))

	err := Do(context.Background(), DefaultOptions(), func(context.Context) error {
		calls++
		return badRequest
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, badRequest)
}

func TestDo_ExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	recordSleeps(t)
	calls := 0

	err := Do(context.Background(), Options{MaxAttempts: 4, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		return NewStatusError(http.StatusTooManyRequests, fmt.Errorf("attempt %d", calls))
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Contains(t, err.Error(), "attempt 4")
}

func TestDo_InvalidAttempts(t *testing.T) {
	err := Do(context.Background(), Options{MaxAttempts: 0}, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidAttempts)
}

func TestDo_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	transient := NewStatusError(http.StatusBadGateway, nil)

	err := Do(ctx, Options{MaxAttempts: 5, BaseDelay: time.Hour}, func(context.Context) error {
		calls++
		return transient
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, transient)
}

func TestDoValue_ReturnsValue(t *testing.T) {
	recordSleeps(t)
	calls := 0

	value, err := DoValue(context.Background(), Options{MaxAttempts: 2, BaseDelay: time.Millisecond},
		func(context.Context) (string, error) {
			calls++
			if calls == 1 {
				return "", &net.DNSError{Err: "no such host", Name: "api.example.com", IsTemporary: true}
			}
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, 2, calls)
}

func TestBackoff(t *testing.T) {
	opts := Options{BaseDelay: 500 * time.Millisecond, Jitter: 500 * time.Millisecond}

	for attempt := 0; attempt < 4; attempt++ {
		base := opts.BaseDelay << attempt
		for i := 0; i < 20; i++ {
			d := opts.Backoff(attempt)
			assert.GreaterOrEqual(t, d, base)
			assert.Less(t, d, base+opts.Jitter)
		}
	}

	assert.Equal(t, 2*time.Second, Options{BaseDelay: time.Second}.Backoff(1))
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "connection reset", err: fmt.Errorf("read: %w", syscall.ECONNRESET), expected: true},
		{name: "dns failure", err: &net.DNSError{Err: "no such host", Name: "x"}, expected: true},
		{name: "network timeout", err: &net.OpError{Op: "dial", Err: timeoutError{}}, expected: true},
		{name: "deadline exceeded", err: context.DeadlineExceeded, expected: true},
		{name: "cancelled", err: context.Canceled, expected: false},
		{name: "429", err: NewStatusError(http.StatusTooManyRequests, nil), expected: true},
		{name: "500", err: NewStatusError(http.StatusInternalServerError, nil), expected: true},
		{name: "503 wrapped", err: fmt.Errorf("call: %w", NewStatusError(http.StatusServiceUnavailable, nil)), expected: true},
		{name: "404", err: NewStatusError(http.StatusNotFound, nil), expected: false},
		{name: "400", err: NewStatusError(http.StatusBadRequest, nil), expected: false},
		{name: "logic error", err: errors.New("malformed response"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTransient(tt.err))
		})
	}
}

func TestNewOptions(t *testing.T) {
	opts := NewOptions(0, 0)
	assert.Equal(t, DefaultOptions().MaxAttempts, opts.MaxAttempts)
	assert.Equal(t, DefaultOptions().BaseDelay, opts.BaseDelay)

	opts = NewOptions(5, time.Second)
	assert.Equal(t, 5, opts.MaxAttempts)
	assert.Equal(t, time.Second, opts.BaseDelay)
	assert.NotNil(t, opts.IsRetryable)
}
