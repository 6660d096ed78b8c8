// SPDX-License-Identifier: AGPL-3.0-or-later

// Package supervisor runs the periodic polling loop described in
// spec.md §4.8: one tick lists users, fans the per-user pipeline out
// over a bounded worker pool, and accumulates cycle statistics.
package supervisor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/certenio/pending-discovery/internal/application/discovery"
	"github.com/certenio/pending-discovery/internal/application/reconcile"
	"github.com/certenio/pending-discovery/internal/domain/models"
	"github.com/certenio/pending-discovery/pkg/logger"
	"github.com/certenio/pending-discovery/pkg/retry"
)

// UserLister is the subset of internal/infrastructure/store.Store the
// supervisor depends on to enumerate eligible users.
type UserLister interface {
	ListUsersWithIdentities(ctx context.Context) ([]models.User, error)
}

// Supervisor owns the ticker loop, the re-entrance guard, and the
// bounded worker pool that runs the per-user pipeline every tick.
type Supervisor struct {
	lister       UserLister
	explorer     *discovery.Explorer
	engine       *discovery.Engine
	reconciler   *reconcile.Reconciler
	pollInterval time.Duration
	sem          *retry.Semaphore

	running atomic.Bool
}

// New builds a Supervisor polling every pollIntervalSec with at most
// userConcurrency users processed concurrently per cycle.
func New(lister UserLister, explorer *discovery.Explorer, engine *discovery.Engine, reconciler *reconcile.Reconciler, pollIntervalSec, userConcurrency int) *Supervisor {
	return &Supervisor{
		lister:       lister,
		explorer:     explorer,
		engine:       engine,
		reconciler:   reconciler,
		pollInterval: time.Duration(pollIntervalSec) * time.Second,
		sem:          retry.NewSemaphore(userConcurrency),
	}
}

// Run blocks until ctx is canceled, performing an immediate cycle and
// then one every pollInterval. A tick that arrives while the previous
// cycle is still running is dropped, not queued.
func (s *Supervisor) Run(ctx context.Context) {
	logger.Logger.Info("supervisor: starting", "poll_interval", s.pollInterval)

	s.tick(ctx)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Logger.Info("supervisor: shutting down, draining in-flight work")
			s.drain()
			logger.Logger.Info("supervisor: exited")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one cycle unless the previous one is still in flight.
func (s *Supervisor) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		logger.Logger.Warn("supervisor: tick dropped, previous cycle still running")
		return
	}
	defer s.running.Store(false)

	stats := s.runCycle(ctx)
	logger.Logger.Info("supervisor: cycle complete",
		"total_users", stats.TotalUsers,
		"processed_users", stats.ProcessedUsers,
		"skipped_users", stats.SkippedUsers,
		"failed_users", stats.FailedUsers,
		"total_pending", stats.TotalPending,
		"firestore_writes", stats.FirestoreWrites,
		"duration_ms", stats.DurationMs,
	)
}

// runCycle lists users and runs the per-user pipeline over the bounded
// worker pool, returning the accumulated cycle statistics. A failure
// to list users aborts the cycle without crashing the process.
func (s *Supervisor) runCycle(ctx context.Context) PollStats {
	start := time.Now()
	acc := &statsAccumulator{}

	users, err := s.lister.ListUsersWithIdentities(ctx)
	if err != nil {
		logger.Logger.Error("supervisor: cycle aborted, failed to list users", "error", err)
		return PollStats{DurationMs: time.Since(start).Milliseconds()}
	}
	acc.stats.TotalUsers = len(users)

	var wg sync.WaitGroup
	for _, user := range users {
		if !user.Eligible() {
			acc.addSkipped()
			continue
		}

		if err := s.sem.Acquire(ctx); err != nil {
			// Context canceled mid-cycle (shutdown): stop submitting new
			// work, let already-acquired permits drain below.
			break
		}

		wg.Add(1)
		go func(u models.User) {
			defer wg.Done()
			defer s.sem.Release()
			s.runUser(ctx, u, acc)
		}(user)
	}
	wg.Wait()

	final := acc.snapshot()
	final.DurationMs = time.Since(start).Milliseconds()
	return final
}

func (s *Supervisor) runUser(ctx context.Context, user models.User, acc *statsAccumulator) {
	outcome, skipped, err := processUser(ctx, s.explorer, s.engine, s.reconciler, user)
	if err != nil {
		logger.Logger.Error("supervisor: user cycle failed", "uid", user.UID, "error", err)
		acc.addFailed()
		return
	}
	if skipped {
		acc.addSkipped()
		return
	}
	if outcome.Skipped {
		acc.addFailed()
		return
	}
	acc.addProcessed(outcome.TotalPending, outcome.FirestoreWrites)
}

// drain waits for any in-flight cycle to finish, honoring the
// shutdown contract that no new RPCs are initiated but work already
// underway is allowed to complete.
func (s *Supervisor) drain() {
	for s.running.Load() {
		time.Sleep(10 * time.Millisecond)
	}
}
