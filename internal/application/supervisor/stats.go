// SPDX-License-Identifier: AGPL-3.0-or-later
package supervisor

import "sync"

// PollStats accumulates the per-cycle counters spec.md §4.8 requires,
// written concurrently by N worker goroutines under statsAccumulator's
// mutex.
type PollStats struct {
	TotalUsers      int
	ProcessedUsers  int
	SkippedUsers    int // users with no identities, or without both gating flags set
	FailedUsers     int
	TotalPending    int
	FirestoreWrites int
	DurationMs      int64
}

type statsAccumulator struct {
	mu    sync.Mutex
	stats PollStats
}

func (a *statsAccumulator) addProcessed(pending, writes int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.ProcessedUsers++
	a.stats.TotalPending += pending
	a.stats.FirestoreWrites += writes
}

func (a *statsAccumulator) addSkipped() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.SkippedUsers++
}

func (a *statsAccumulator) addFailed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.FailedUsers++
}

func (a *statsAccumulator) snapshot() PollStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}
