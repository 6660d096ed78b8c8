// SPDX-License-Identifier: AGPL-3.0-or-later
package reconcile

import (
	"context"

	"github.com/certenio/pending-discovery/internal/domain/models"
)

// Store is the subset of internal/infrastructure/store.Store the
// reconciler depends on, accepted as an interface so reconciliation
// logic is testable without a live Firestore instance.
type Store interface {
	GetInbox(ctx context.Context, uid string) (map[string]models.PendingActionDoc, error)
	ApplyInboxDiff(ctx context.Context, uid string, adds map[string]models.PendingActionDoc, removeIds []string, summary models.ComputedInboxSummary) error
}
