package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNetwork marks a failure to reach a remote cache backend.
var ErrNetwork = errors.New("network error")

// RetryableError marks an error as transient. Only these are retried.
type RetryableError struct{ Err error }

// Retryable wraps err as a RetryableError. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err, or anything it wraps, is a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// RetryPolicy bounds how remote cache calls are retried. Delay doubles after
// every failed attempt.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy is three attempts starting at one second.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Delay: time.Second}

// withDefaults fills zero fields from DefaultRetryPolicy.
func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultRetryPolicy.Attempts
	}
	if p.Delay <= 0 {
		p.Delay = DefaultRetryPolicy.Delay
	}
	return p
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// attempts run out. It returns ctx.Err() if ctx ends while waiting.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	p = p.withDefaults()
	delay := p.Delay
	var lastErr error

	for i := 0; i < p.Attempts; i++ {
		if lastErr = fn(); lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		if i == p.Attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return lastErr
}

// RetryWithBackoff runs fn under DefaultRetryPolicy.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return DefaultRetryPolicy.Do(ctx, fn)
}
