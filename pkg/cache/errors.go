package cache

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared by the HTTP clients that sit in front of a cache.
var (
	// ErrNotFound means the upstream has no such resource.
	ErrNotFound = errors.New("not found")

	// ErrNetwork covers transport failures, timeouts and 5xx responses.
	ErrNetwork = errors.New("network error")
)

// RetryableError marks an error as worth another attempt.
type RetryableError struct{ Err error }

// Retryable wraps err as a RetryableError. It returns nil for nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err was wrapped with [Retryable].
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// RetryDelay is the wait before the second attempt; it doubles after
// each further attempt.
var RetryDelay = time.Second

// RetryWithBackoff calls fn up to three times. Only errors wrapped with
// [Retryable] cause another attempt.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	const attempts = 3
	delay := RetryDelay
	var lastErr error

	for i := 0; i < attempts; i++ {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}
