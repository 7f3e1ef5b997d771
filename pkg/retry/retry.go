// Package retry re-runs calls to upstream model providers that failed for a
// transient reason.
package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config defines retry behavior with exponential backoff
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64 // 0.0-1.0, spread applied to every wait
}

// DefaultConfig suits interactive provider calls: two retries, starting at
// 500ms and capped at 4s.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:   2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     4 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// backOff builds the policy for one call. Elapsed time is not capped; the
// retry count and ctx bound the loop.
func (c *Config) backOff(ctx context.Context) backoff.BackOff {
	maxDelay := c.MaxDelay
	if maxDelay < c.InitialDelay {
		maxDelay = c.InitialDelay
	}
	multiplier := c.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	retries := c.MaxRetries
	if retries < 0 {
		retries = 0
	}

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(c.InitialDelay),
		backoff.WithMaxInterval(maxDelay),
		backoff.WithMultiplier(multiplier),
		backoff.WithRandomizationFactor(c.JitterFactor),
		backoff.WithMaxElapsedTime(0),
	)
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// RetryableError is implemented by errors that know whether a retry can help.
type RetryableError interface {
	error
	IsRetryable() bool
}

// IsRetryable reports whether err is worth another attempt. Errors that
// declare their retryability decide for themselves; otherwise only network
// failures qualify. Context cancellation never does.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var r RetryableError
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"i/o timeout",
		"network is unreachable",
		"unexpected eof",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// Do runs fn until it succeeds, returns a non-retryable error, or the retry
// budget runs out. Errors from fn are returned unchanged; if ctx ends while
// waiting, ctx.Err() is returned.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	}, nil)
	return err
}

// DoWithResult is Do for functions that return a value. notify, if set, is
// called with the failed attempt's error and the wait before the next one.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error), notify func(err error, wait time.Duration)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	op := func() (T, error) {
		result, err := fn()
		if err != nil && !IsRetryable(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}
	return backoff.RetryNotifyWithData(op, cfg.backOff(ctx), notify)
}
