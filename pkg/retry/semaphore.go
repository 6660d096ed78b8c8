// SPDX-License-Identifier: AGPL-3.0-or-later
package retry

import "context"

// Semaphore is a counting semaphore used to bound per-cycle user
// concurrency. It generalizes the teacher's inline
// `sem := make(chan struct{}, N)` worker-pool pattern into a reusable
// type with context-aware Acquire. Goroutines blocked on a channel are
// released in the order they started waiting, so this gives the FIFO
// fairness the polling supervisor requires to avoid starvation under
// sustained load.
type Semaphore struct {
	tokens chan struct{}
}

// NewSemaphore creates a semaphore with the given number of permits.
func NewSemaphore(permits int) *Semaphore {
	if permits < 1 {
		permits = 1
	}
	return &Semaphore{tokens: make(chan struct{}, permits)}
}

// Acquire blocks until a permit is available or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.tokens <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a permit to the pool, waking the oldest waiter.
func (s *Semaphore) Release() {
	select {
	case <-s.tokens:
	default:
		// Release without a matching Acquire is a caller bug; ignore
		// rather than panic so a double-release can't crash a worker.
	}
}
