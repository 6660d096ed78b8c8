// SPDX-License-Identifier: AGPL-3.0-or-later
package supervisor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certenio/pending-discovery/internal/application/discovery"
	"github.com/certenio/pending-discovery/internal/application/reconcile"
	"github.com/certenio/pending-discovery/internal/domain/models"
)

// noopLedger implements discovery.LedgerClient with all-empty responses,
// enough to exercise the supervisor loop without a live endpoint.
type noopLedger struct{}

func (noopLedger) AccountExists(ctx context.Context, url string) bool         { return false }
func (noopLedger) QueryKeyBookPageCount(ctx context.Context, url string) int { return 0 }
func (noopLedger) QueryKeyPage(ctx context.Context, url string) (*models.KeyPage, error) {
	return nil, models.ErrKeyPageNotFound
}
func (noopLedger) QueryDirectory(ctx context.Context, url string, start, count int) ([]string, error) {
	return nil, nil
}
func (noopLedger) QueryPendingTxIds(ctx context.Context, scope string, pageSize, maxPages int) []string {
	return nil
}
func (noopLedger) QuerySignatureChain(ctx context.Context, url string, start, count int, expand bool) ([]any, int, error) {
	return nil, 0, nil
}
func (noopLedger) QueryTransaction(ctx context.Context, txID string) (*models.PendingTx, error) {
	return nil, models.ErrPendingTxNotFound
}
func (noopLedger) QueryTransactionRaw(ctx context.Context, txID string) (map[string]any, error) {
	return nil, models.ErrPendingTxNotFound
}

type fakeStore struct{}

func (fakeStore) GetInbox(ctx context.Context, uid string) (map[string]models.PendingActionDoc, error) {
	return map[string]models.PendingActionDoc{}, nil
}
func (fakeStore) ApplyInboxDiff(ctx context.Context, uid string, adds map[string]models.PendingActionDoc, removeIds []string, summary models.ComputedInboxSummary) error {
	return nil
}

type fakeLister struct {
	users []models.User
	calls int32
}

func (f *fakeLister) ListUsersWithIdentities(ctx context.Context) ([]models.User, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.users, nil
}

func newTestSupervisor(users []models.User) *Supervisor {
	explorer := discovery.NewExplorer(noopLedger{}, 5)
	engine := discovery.NewEngine(noopLedger{}, 50, 3)
	reconciler := reconcile.New(fakeStore{}, "mainnet", false)
	lister := &fakeLister{users: users}
	return New(lister, explorer, engine, reconciler, 600, 4)
}

func TestRunCycle_SkipsUsersWithNoIdentities(t *testing.T) {
	users := []models.User{
		{UID: "u1", OnboardingComplete: true, KeyVaultSetup: true},
		{UID: "u2", OnboardingComplete: true, KeyVaultSetup: true, Identities: []models.Identity{{IdentityURL: "acc://u2.acme"}}},
	}
	sup := newTestSupervisor(users)

	stats := sup.runCycle(context.Background())

	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 1, stats.SkippedUsers)
	assert.Equal(t, 1, stats.ProcessedUsers)
	assert.Zero(t, stats.FailedUsers)
}

func TestRunCycle_SkipsIneligibleUsers(t *testing.T) {
	users := []models.User{
		{UID: "u1", OnboardingComplete: false, KeyVaultSetup: true, Identities: []models.Identity{{IdentityURL: "acc://u1.acme"}}},
	}
	sup := newTestSupervisor(users)

	stats := sup.runCycle(context.Background())

	assert.Equal(t, 1, stats.SkippedUsers)
	assert.Zero(t, stats.ProcessedUsers)
}

func TestTick_DropsOverlappingCycle(t *testing.T) {
	sup := newTestSupervisor(nil)
	sup.running.Store(true)

	sup.tick(context.Background())

	// tick should have returned immediately without clearing the flag
	// it didn't set itself.
	assert.True(t, sup.running.Load())
}

func TestRun_ImmediateCycleThenShutdown(t *testing.T) {
	lister := &fakeLister{users: nil}
	explorer := discovery.NewExplorer(noopLedger{}, 5)
	engine := discovery.NewEngine(noopLedger{}, 50, 3)
	reconciler := reconcile.New(fakeStore{}, "mainnet", false)
	sup := New(lister, explorer, engine, reconciler, 3600, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&lister.calls) >= 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after context cancellation")
	}
}
