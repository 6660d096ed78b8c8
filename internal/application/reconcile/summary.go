// SPDX-License-Identifier: AGPL-3.0-or-later
package reconcile

import (
	"time"

	"github.com/certenio/pending-discovery/internal/domain/models"
)

// buildSummary computes the ComputedInboxSummary for a set of inbox
// docs, storing txHashes in the order given.
func buildSummary(uid string, docs map[string]models.PendingActionDoc, txHashes []string, start, now time.Time) models.ComputedInboxSummary {
	summary := models.ComputedInboxSummary{
		Total:      len(docs),
		TxHashes:   txHashes,
		CycleToken: cycleToken(uid, now),
		ComputedAt: now,
		DurationMs: now.Sub(start).Milliseconds(),
	}

	for _, doc := range docs {
		if doc.IsExpiring {
			summary.UrgentCount++
		}
		switch doc.Category {
		case models.CategoryInitiatedByUser:
			summary.InitiatedByUser++
		case models.CategoryRequiringSignature:
			summary.RequiringSignature++
		}
	}

	return summary
}
