package source

import (
	"context"
	"errors"
	"time"
)

// transient marks an error worth another attempt.
type transient struct{ err error }

func (e *transient) Error() string { return e.err.Error() }
func (e *transient) Unwrap() error { return e.err }

func retryable(err error) error {
	if err == nil {
		return nil
	}
	return &transient{err: err}
}

// retry runs fn up to attempts times, doubling delay between tries. Only
// errors wrapped by retryable are retried; the unwrapped cause of the last
// failure is returned.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var last error
	for i := range attempts {
		err := fn()
		if err == nil {
			return nil
		}
		var t *transient
		if !errors.As(err, &t) {
			return err
		}
		last = t.err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return last
}
