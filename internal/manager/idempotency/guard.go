// Package idempotency deduplicates concurrent attempts at the same operation.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/code-sleuth/ike-tube/internal/manager/interfaces"
	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/rs/zerolog"
)

const (
	// DefaultTTL bounds how long an abandoned marker blocks retries.
	DefaultTTL = 120 * time.Second

	processing = "PROCESSING"
)

var ErrEmptyKey = errors.New("idempotency key cannot be empty")

// Outcome reports whether another attempt already holds the key.
type Outcome struct {
	AlreadyInFlight bool
}

// Guard places PROCESSING markers in a shared store.
type Guard struct {
	store  interfaces.CounterStore
	ttl    time.Duration
	logger zerolog.Logger
}

// NewGuard creates a guard whose markers expire after ttl (DefaultTTL when zero).
func NewGuard(store interfaces.CounterStore, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{
		store:  store,
		ttl:    ttl,
		logger: util.NewLoggerFromEnv(),
	}
}

// Key returns the store key for an idempotency key.
func Key(key string) string {
	return "idempotency:" + key
}

// Begin marks key as in flight. Of any number of concurrent callers, exactly
// one observes AlreadyInFlight=false.
func (g *Guard) Begin(ctx context.Context, key string) (Outcome, error) {
	if key == "" {
		return Outcome{}, ErrEmptyKey
	}

	acquired, err := g.store.SetIfAbsent(ctx, Key(key), processing, g.ttl)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to place idempotency marker: %w", err)
	}
	if !acquired {
		g.logger.Info().Str("key", key).Msg("Operation already in flight")
	}

	return Outcome{AlreadyInFlight: !acquired}, nil
}

// Finish releases key so a later attempt can proceed before the TTL elapses.
func (g *Guard) Finish(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := g.store.Delete(ctx, Key(key)); err != nil {
		g.logger.Warn().Err(err).Str("key", key).Msg("Failed to release idempotency marker")
		return fmt.Errorf("failed to release idempotency marker: %w", err)
	}
	return nil
}
