// Package retry runs an operation a bounded number of times with a fixed delay
// between attempts. Operations classify their own failures as transient or fatal.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted wraps the last transient error once all attempts are spent.
var ErrExhausted = errors.New("retry attempts exhausted")

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as retryable. Nil stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked retryable.
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// Policy bounds attempts and fixes the delay between them.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Do calls fn until it succeeds, returns a non-transient error, the context
// ends, or MaxAttempts is reached. The attempt number passed to fn starts at 1.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	attempts := max(p.MaxAttempts, 1)

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}
		if !IsTransient(err) {
			return zero, err
		}
		last = err

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%w: %w", ctx.Err(), last)
		case <-time.After(p.Delay):
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, last)
}
