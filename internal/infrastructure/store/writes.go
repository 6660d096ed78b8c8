package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/certenio/pending-discovery/internal/domain/models"
)

// ApplyInboxDiff commits, as a single Firestore WriteBatch, the
// deletion of every doc in removeIds, a merge-upsert of every doc in
// adds, and a merge-upsert of the computed summary — the Go-SDK
// analogue of the spec's single logical transaction per user. Partial
// application is not possible: the batch either commits wholesale or
// fails wholesale, in which case the caller retries next cycle.
func (s *Store) ApplyInboxDiff(ctx context.Context, uid string, adds map[string]models.PendingActionDoc, removeIds []string, summary models.ComputedInboxSummary) error {
	userRef := s.client.Collection(s.usersCol).Doc(uid)
	actionsCol := userRef.Collection("pendingActions")

	batch := s.client.Batch()

	for _, id := range removeIds {
		batch.Delete(actionsCol.Doc(id))
	}
	for id, doc := range adds {
		batch.Set(actionsCol.Doc(id), fromDomainPendingAction(doc), firestore.MergeAll)
	}
	batch.Set(
		userRef.Collection("computedState").Doc("pending"),
		fromDomainSummary(summary),
		firestore.MergeAll,
	)

	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("apply inbox diff for %s: %w", uid, err)
	}
	return nil
}
