// Package db owns PostgreSQL connectivity for Fibra Core.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a new PostgreSQL connection pool.
func New(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("platform/db: new pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}

	return pool, nil
}

// IsPoolExhausted reports whether the error came from waiting for a free
// connection rather than from the statement itself.
func IsPoolExhausted(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// WithRetry runs op, retrying only pool-exhaustion failures with bounded
// attempts and linear backoff. Anything else propagates on the first attempt.
func WithRetry(ctx context.Context, op func(context.Context) error) error {
	const (
		retries   = 2
		baseDelay = 250 * time.Millisecond
	)

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsPoolExhausted(lastErr) || attempt == retries {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(baseDelay * time.Duration(attempt+1)):
		}
	}
	return lastErr
}
