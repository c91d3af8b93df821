package util

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// Default values of RetryPolicy.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// RetryCallback is callback function type for RetryPolicy. seq starts from 0. Returning nil
// means success, an error wrapped by StopRetry aborts without further attempts and any other
// error is retried.
type RetryCallback func(seq int) error

// ErrRetryLimitExceeded indicates all attempts of RetryPolicy failed.
var ErrRetryLimitExceeded = errors.New("Limit of retry exceeded")

// RetryPolicy runs a callback up to MaxAttempts times. It sleeps BaseDelay * 2^seq after
// the failed attempt seq. No sleep follows the final attempt.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       func(time.Duration)
}

// NewRetryPolicy is constructor of RetryPolicy with default attempts, delay and time.Sleep.
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Sleep:       time.Sleep,
	}
}

// NoWaitRetryPolicy returns RetryPolicy that does not sleep. It is for testing.
func NoWaitRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Sleep:       func(time.Duration) {},
	}
}

// WaitTime returns sleep duration after the failed attempt seq.
func (x *RetryPolicy) WaitTime(seq int) time.Duration {
	return time.Duration(float64(x.BaseDelay) * math.Pow(2.0, float64(seq)))
}

// Run calls callback until it succeeds, it returns StopRetry error or attempts are exhausted.
// The returned error of exhausted attempts is ErrRetryLimitExceeded wrapping the last error.
func (x *RetryPolicy) Run(callback RetryCallback) error {
	limit := x.MaxAttempts
	if limit <= 0 {
		limit = DefaultMaxAttempts
	}
	sleep := x.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for seq := 0; seq < limit; seq++ {
		err := callback(seq)
		if err == nil {
			return nil
		}

		var stop *stopError
		if errors.As(err, &stop) {
			return stop.err
		}

		lastErr = err
		if seq+1 < limit {
			sleep(x.WaitTime(seq))
		}
	}

	return &RetryError{Attempts: limit, Err: lastErr}
}

// RetryError is returned when all attempts failed.
type RetryError struct {
	Attempts int
	Err      error
}

func (x *RetryError) Error() string {
	return errors.Wrapf(x.Err, "%s (%d attempts)", ErrRetryLimitExceeded, x.Attempts).Error()
}

// Unwrap returns the error of the last attempt.
func (x *RetryError) Unwrap() error { return x.Err }

// Cause returns the error of the last attempt for errors.Cause.
func (x *RetryError) Cause() error { return x.Err }

// Is makes errors.Is(err, ErrRetryLimitExceeded) true.
func (x *RetryError) Is(target error) bool { return target == ErrRetryLimitExceeded }

type stopError struct {
	err error
}

func (x *stopError) Error() string { return x.err.Error() }
func (x *stopError) Unwrap() error { return x.err }

// StopRetry marks err as not retryable.
func StopRetry(err error) error {
	if err == nil {
		return nil
	}
	return &stopError{err: err}
}
