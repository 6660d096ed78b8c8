// SPDX-License-Identifier: AGPL-3.0-or-later
package retry

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphore_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	sem := NewSemaphore(2)
	var current, maxSeen int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, sem.Acquire(context.Background()))
			defer sem.Release()

			c := atomic.AddInt32(&current, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if c <= m || atomic.CompareAndSwapInt32(&maxSeen, m, c) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&current, -1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, int(maxSeen), 2)
}

func TestSemaphore_AcquireRespectsContext(t *testing.T) {
	t.Parallel()

	sem := NewSemaphore(1)
	require.NoError(t, sem.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := sem.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
