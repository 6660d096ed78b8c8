// SPDX-License-Identifier: AGPL-3.0-or-later
package reconcile

import (
	"time"

	"github.com/certenio/pending-discovery/internal/domain/models"
	"github.com/certenio/pending-discovery/pkg/canonical"
)

const (
	criticalWindow = 4 * time.Hour
	warningWindow  = 24 * time.Hour
)

// buildDoc renders one EligibleTransaction into the inbox document
// shape a UI consumes, per spec.md §4.7. createdAt is carried over from
// the existing doc of the same hash, or set to now for a first sighting.
func buildDoc(t models.EligibleTransaction, network string, now, createdAt time.Time) models.PendingActionDoc {
	status := models.DocStatusPending
	if len(t.Tx.Signatures) > 0 {
		status = models.DocStatusPartiallySigned
	}

	var timeRemaining time.Duration
	urgency := models.UrgencyNormal
	isExpiring := false
	if t.Tx.ExpiresAt != nil {
		timeRemaining = t.Tx.ExpiresAt.Sub(now)
		isExpiring = timeRemaining < warningWindow
		switch {
		case timeRemaining < criticalWindow:
			urgency = models.UrgencyCritical
		case timeRemaining < warningWindow:
			urgency = models.UrgencyWarning
		}
	}

	paths := make([]string, 0, len(t.EligiblePaths))
	for _, p := range t.Paths() {
		paths = append(paths, p.Render())
	}

	sigs := make([]models.RenderedSignature, 0, len(t.Tx.Signatures))
	for _, s := range t.Tx.Signatures {
		vote := s.Vote
		if vote == "" {
			vote = models.VoteApprove
		}
		signedAt := s.Timestamp
		if signedAt.IsZero() {
			signedAt = now
		}
		sigs = append(sigs, models.RenderedSignature{
			Signer:        s.Signer,
			PublicKeyHash: s.PublicKeyHash,
			Vote:          vote,
			SignedAt:      signedAt,
		})
	}

	return models.PendingActionDoc{
		TxHash:               canonical.Hash(t.Tx.Hash),
		TxID:                 t.Tx.TxID,
		Principal:            t.Tx.Principal,
		Type:                 t.Tx.Type,
		Category:             t.Category,
		Status:               status,
		UrgencyLevel:         urgency,
		TimeRemaining:        timeRemaining,
		IsExpiring:           isExpiring,
		ExpiresAt:            t.Tx.ExpiresAt,
		Signatures:           sigs,
		EligibleSigningPaths: paths,
		UserHasSigned:        false,
		Network:              network,
		CreatedAt:            createdAt,
		UpdatedAt:            now,
	}
}
