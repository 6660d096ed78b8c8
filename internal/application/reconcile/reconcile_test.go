// SPDX-License-Identifier: AGPL-3.0-or-later
package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certenio/pending-discovery/internal/application/discovery"
	"github.com/certenio/pending-discovery/internal/domain/models"
)

type fakeStore struct {
	inbox          map[string]models.PendingActionDoc
	lastAdds       map[string]models.PendingActionDoc
	lastRemoveIds  []string
	lastSummary    models.ComputedInboxSummary
	applyCallCount int
}

func newFakeStore(inbox map[string]models.PendingActionDoc) *fakeStore {
	if inbox == nil {
		inbox = map[string]models.PendingActionDoc{}
	}
	return &fakeStore{inbox: inbox}
}

func (f *fakeStore) GetInbox(ctx context.Context, uid string) (map[string]models.PendingActionDoc, error) {
	return f.inbox, nil
}

func (f *fakeStore) ApplyInboxDiff(ctx context.Context, uid string, adds map[string]models.PendingActionDoc, removeIds []string, summary models.ComputedInboxSummary) error {
	f.applyCallCount++
	f.lastAdds = adds
	f.lastRemoveIds = removeIds
	f.lastSummary = summary
	return nil
}

func eligibleResult(tx models.PendingTx, category models.Category) discovery.Result {
	return discovery.Result{
		Eligible: map[string]models.EligibleTransaction{
			tx.Hash: {
				Tx:            tx,
				Category:      category,
				EligiblePaths: map[string]models.SigningPath{"p": {Hops: []string{tx.Principal}}},
			},
		},
		RPCAttempts: 1,
	}
}

// S6: a transaction present in the stored inbox but absent from the
// current discovery result is removed on reconciliation.
func TestReconcile_S6_RemovesStaleEntries(t *testing.T) {
	store := newFakeStore(map[string]models.PendingActionDoc{
		"stale-hash": {TxHash: "stale-hash"},
	})
	r := New(store, "mainnet", false)

	res := discovery.Result{Eligible: map[string]models.EligibleTransaction{}, RPCAttempts: 1}
	outcome, err := r.Reconcile(context.Background(), "uid1", res)

	require.NoError(t, err)
	assert.False(t, outcome.Skipped)
	assert.Equal(t, []string{"stale-hash"}, store.lastRemoveIds)
	assert.Empty(t, store.lastAdds)
}

func TestReconcile_AddsNewEligible(t *testing.T) {
	store := newFakeStore(nil)
	r := New(store, "testnet", false)

	tx := models.PendingTx{TxID: "acc://a@tx1", Hash: "tx1", Principal: "acc://a.acme", Status: models.TxStatusPending}
	res := eligibleResult(tx, models.CategoryInitiatedByUser)

	outcome, err := r.Reconcile(context.Background(), "uid1", res)

	require.NoError(t, err)
	assert.Equal(t, 1, outcome.TotalPending)
	require.Contains(t, store.lastAdds, "tx1")
	assert.Equal(t, "testnet", store.lastAdds["tx1"].Network)
	assert.Equal(t, models.DocStatusPending, store.lastAdds["tx1"].Status)
}

func TestReconcile_PreservesCreatedAtAcrossCycles(t *testing.T) {
	earlier := time.Now().Add(-48 * time.Hour)
	store := newFakeStore(map[string]models.PendingActionDoc{
		"tx1": {TxHash: "tx1", CreatedAt: earlier},
	})
	r := New(store, "mainnet", false)

	tx := models.PendingTx{TxID: "acc://a@tx1", Hash: "tx1", Principal: "acc://a.acme", Status: models.TxStatusPending}
	res := eligibleResult(tx, models.CategoryRequiringSignature)

	_, err := r.Reconcile(context.Background(), "uid1", res)
	require.NoError(t, err)

	assert.True(t, store.lastAdds["tx1"].CreatedAt.Equal(earlier))
}

func TestReconcile_DryRunSkipsStoreWrite(t *testing.T) {
	store := newFakeStore(nil)
	r := New(store, "mainnet", true)

	tx := models.PendingTx{TxID: "acc://a@tx1", Hash: "tx1", Principal: "acc://a.acme", Status: models.TxStatusPending}
	res := eligibleResult(tx, models.CategoryInitiatedByUser)

	outcome, err := r.Reconcile(context.Background(), "uid1", res)

	require.NoError(t, err)
	assert.True(t, outcome.DryRun)
	assert.Equal(t, 1, outcome.TotalPending)
	assert.Zero(t, store.applyCallCount)
}

// §7: total ledger unavailability for a user's cycle must skip
// reconciliation entirely rather than wipe out their inbox.
func TestReconcile_TotalLedgerUnavailabilityGuard(t *testing.T) {
	store := newFakeStore(map[string]models.PendingActionDoc{
		"existing": {TxHash: "existing"},
	})
	r := New(store, "mainnet", false)

	res := discovery.Result{
		Eligible:    map[string]models.EligibleTransaction{},
		RPCAttempts: 5,
		RPCFailures: 5,
	}

	outcome, err := r.Reconcile(context.Background(), "uid1", res)

	require.NoError(t, err)
	assert.True(t, outcome.Skipped)
	assert.Zero(t, store.applyCallCount)
}

func TestReconcile_PartialRPCFailureStillReconciles(t *testing.T) {
	store := newFakeStore(nil)
	r := New(store, "mainnet", false)

	tx := models.PendingTx{TxID: "acc://a@tx1", Hash: "tx1", Principal: "acc://a.acme", Status: models.TxStatusPending}
	res := eligibleResult(tx, models.CategoryInitiatedByUser)
	res.RPCAttempts = 5
	res.RPCFailures = 2

	outcome, err := r.Reconcile(context.Background(), "uid1", res)

	require.NoError(t, err)
	assert.False(t, outcome.Skipped)
	assert.Equal(t, 1, store.applyCallCount)
}
