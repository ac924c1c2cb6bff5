package storage

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// retryConfig bounds retries of transient SQLite failures.
type retryConfig struct {
	MaxRetries     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	JitterFraction float64
}

var defaultRetryConfig = retryConfig{
	MaxRetries:     4,
	InitialDelay:   25 * time.Millisecond,
	MaxDelay:       500 * time.Millisecond,
	JitterFraction: 0.2,
}

// withRetry runs fn again while it fails with a busy or locked database.
// Any other error is returned immediately.
func withRetry[T any](ctx context.Context, cfg retryConfig, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isBusy(err) || attempt >= cfg.MaxRetries {
			break
		}

		delay := backoff(cfg, attempt)
		slog.WarnContext(ctx, "Database busy, retrying",
			"operation", op,
			"attempt", attempt+1,
			"delay", delay)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}

// backoff doubles the initial delay per attempt, capped at MaxDelay, with jitter.
func backoff(cfg retryConfig, attempt int) time.Duration {
	delay := cfg.InitialDelay
	for i := 0; i < attempt && delay < cfg.MaxDelay; i++ {
		delay *= 2
	}
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	if cfg.JitterFraction > 0 {
		jitter := float64(delay) * cfg.JitterFraction * (rand.Float64()*2 - 1)
		delay += time.Duration(jitter)
	}
	if delay < 0 {
		delay = cfg.InitialDelay
	}
	return delay
}

func sqliteCode(err error) (int, bool) {
	var se *moderncsqlite.Error
	if errors.As(err, &se) {
		return se.Code(), true
	}
	return 0, false
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok {
		primary := code & 0xff
		return primary == sqlite3.SQLITE_BUSY || primary == sqlite3.SQLITE_LOCKED
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok && code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
