// SPDX-License-Identifier: AGPL-3.0-or-later
package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelay_WithinJitterBounds(t *testing.T) {
	t.Parallel()

	opts := Options{InitialDelay: 100 * time.Millisecond, MaxDelay: 5 * time.Second, Multiplier: 2.0}
	for attempt := 0; attempt < 6; attempt++ {
		capped := minDuration(opts.InitialDelay*time.Duration(pow2(attempt)), opts.MaxDelay)
		low := Delay(opts, attempt, 0.0)
		high := Delay(opts, attempt, 1.0)
		assert.GreaterOrEqual(t, low, capped, "attempt %d low bound", attempt)
		assert.LessOrEqual(t, high, time.Duration(float64(capped)*1.3)+time.Millisecond, "attempt %d high bound", attempt)
	}
}

func pow2(n int) int {
	r := 1
	for i := 0; i < n; i++ {
		r *= 2
	}
	return r
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	attempts := 0
	opts := DefaultOptions()
	opts.InitialDelay = time.Millisecond
	opts.MaxDelay = 2 * time.Millisecond

	err := Do(context.Background(), opts, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_NonRetryableSurfacesImmediately(t *testing.T) {
	t.Parallel()

	attempts := 0
	sentinel := errors.New("bad request")
	err := Do(context.Background(), DefaultOptions(), func(ctx context.Context) error {
		attempts++
		return sentinel
	})

	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, attempts)
}

func TestDo_ExhaustsRetriesAndReturnsLastError(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.MaxRetries = 2
	opts.InitialDelay = time.Millisecond
	opts.MaxDelay = 2 * time.Millisecond

	attempts := 0
	err := Do(context.Background(), opts, func(ctx context.Context) error {
		attempts++
		return errors.New("timeout while dialing")
	})

	require.Error(t, err)
	assert.Equal(t, opts.MaxRetries+1, attempts)
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	assert.True(t, IsTransient(errors.New("connection refused")))
	assert.True(t, IsTransient(errors.New("429 too many requests")))
	assert.True(t, IsTransient(errors.New("read: i/o timeout")))
	assert.False(t, IsTransient(errors.New("invalid argument")))
	assert.False(t, IsTransient(nil))
}
