// SPDX-License-Identifier: AGPL-3.0-or-later
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/certenio/pending-discovery/internal/application/discovery"
	"github.com/certenio/pending-discovery/internal/domain/models"
	"github.com/certenio/pending-discovery/pkg/logger"
)

// Outcome reports what a Reconcile call did for one user, for the
// supervisor's per-cycle PollStats accumulation.
type Outcome struct {
	Skipped         bool // total ledger unavailability guard tripped
	DryRun          bool
	TotalPending    int
	FirestoreWrites int // 0 when dryRun or skipped
}

// Reconciler diffs a discovery cycle's result against a user's stored
// inbox and commits the add/remove/summary batch.
type Reconciler struct {
	store   Store
	network string
	dryRun  bool
}

// New builds a Reconciler. network is the logical network tag stamped
// onto every PendingActionDoc (from ACCUMULATE_NETWORK).
func New(store Store, network string, dryRun bool) *Reconciler {
	return &Reconciler{store: store, network: network, dryRun: dryRun}
}

// Reconcile implements spec.md §4.7: diff the discovery result against
// the current inbox, compute the summary, and commit unless dry-run or
// the total-ledger-unavailability guard trips.
func (r *Reconciler) Reconcile(ctx context.Context, uid string, result discovery.Result) (Outcome, error) {
	start := time.Now()

	if result.TotalLedgerUnavailable() {
		logger.Logger.Warn("reconcile: skipping user, total ledger unavailability this cycle", "uid", uid)
		return Outcome{Skipped: true}, nil
	}

	current, err := r.store.GetInbox(ctx, uid)
	if err != nil {
		return Outcome{}, fmt.Errorf("reconcile %s: get inbox: %w", uid, err)
	}

	newIds := make([]string, 0, len(result.Eligible))
	for hash := range result.Eligible {
		newIds = append(newIds, hash)
	}

	newIdSet := map[string]bool{}
	for _, id := range newIds {
		newIdSet[id] = true
	}

	var toRemove []string
	for id := range current {
		if !newIdSet[id] {
			toRemove = append(toRemove, id)
		}
	}

	now := time.Now()
	toAdd := make(map[string]models.PendingActionDoc, len(result.Eligible))
	for hash, t := range result.Eligible {
		createdAt := now
		if existing, ok := current[hash]; ok {
			createdAt = existing.CreatedAt
		}
		toAdd[hash] = buildDoc(t, r.network, now, createdAt)
	}

	summary := buildSummary(uid, toAdd, newIds, start, now)

	if r.dryRun {
		return Outcome{DryRun: true, TotalPending: summary.Total}, nil
	}

	if err := r.store.ApplyInboxDiff(ctx, uid, toAdd, toRemove, summary); err != nil {
		return Outcome{}, fmt.Errorf("reconcile %s: apply diff: %w", uid, err)
	}

	return Outcome{TotalPending: summary.Total, FirestoreWrites: len(toAdd) + len(toRemove) + 1}, nil
}
