// SPDX-License-Identifier: AGPL-3.0-or-later

// Package retry provides the transient-error retry and bounded-concurrency
// primitives the ledger client and polling supervisor are built on. The
// backoff formula is pinned exactly to the spec's testable invariant
// (delay for attempt k in [d, 1.3*d]); see DESIGN.md for why this is a
// hand-rolled implementation rather than a wrapped third-party backoff
// library.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"strings"
	"time"
)

// Options configures Do's retry behavior.
type Options struct {
	MaxRetries      int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	Multiplier      float64
	IsRetryable     func(error) bool
	now             func() time.Time // not read by Do
	sleep           func(context.Context, time.Duration) error
	jitterFractionF func() float64 // injectable for tests; defaults to rand.Float64
}

// DefaultOptions returns sane defaults matching the spec's §6 config
// table (MAX_RETRIES=3) plus conservative delay bounds.
func DefaultOptions() Options {
	return Options{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		IsRetryable:  IsTransient,
	}
}

// Do invokes fn, retrying up to opts.MaxRetries times on retryable
// errors with exponential backoff and 10-30% jitter. It returns the
// last observed error if retries are exhausted, or immediately
// surfaces the first non-retryable error.
func Do(ctx context.Context, opts Options, fn func(context.Context) error) error {
	isRetryable := opts.IsRetryable
	if isRetryable == nil {
		isRetryable = IsTransient
	}
	sleep := opts.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	jitterFrac := opts.jitterFractionF
	if jitterFrac == nil {
		jitterFrac = rand.Float64
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
		if attempt >= opts.MaxRetries {
			return lastErr
		}
		delay := Delay(opts, attempt, jitterFrac())
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// Delay computes the backoff delay for 0-indexed attempt k:
// min(initial * multiplier^k, max) + jitter, where jitter is a uniform
// 10-30% addition on top of the capped delay. jitterFraction must be in
// [0,1) (e.g. from rand.Float64) and is mapped to the [0.10, 0.30] range.
func Delay(opts Options, attempt int, jitterFraction float64) time.Duration {
	capped := math.Min(
		float64(opts.InitialDelay)*math.Pow(opts.Multiplier, float64(attempt)),
		float64(opts.MaxDelay),
	)
	jitterPct := 0.10 + jitterFraction*0.20
	return time.Duration(capped * (1 + jitterPct))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsTransient is the default retryable-error predicate: network
// timeouts, connection refused/reset, HTTP 429, and the 5xx family.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"timeout",
		"timed out",
		"i/o timeout",
		"eof",
		"temporary failure",
		"429",
		"too many requests",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}

	var statusErr interface{ StatusCode() int }
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode()
		if code == 429 || (code >= 500 && code < 600) {
			return true
		}
	}

	return false
}
