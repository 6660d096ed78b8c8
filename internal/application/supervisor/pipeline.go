// SPDX-License-Identifier: AGPL-3.0-or-later
package supervisor

import (
	"context"
	"fmt"

	"github.com/certenio/pending-discovery/internal/application/discovery"
	"github.com/certenio/pending-discovery/internal/application/reconcile"
	"github.com/certenio/pending-discovery/internal/domain/models"
)

// processUser runs the full per-user pipeline: explore signing paths
// for every stored identity, run the discovery engine across them, and
// reconcile the result into the store. A user with no stored identities
// is reported as skipped without touching the ledger or the store.
func processUser(ctx context.Context, explorer *discovery.Explorer, engine *discovery.Engine, reconciler *reconcile.Reconciler, user models.User) (reconcile.Outcome, bool, error) {
	if len(user.Identities) == 0 {
		return reconcile.Outcome{}, true, nil
	}

	views := make([]discovery.IdentityView, 0, len(user.Identities))
	for _, identity := range user.Identities {
		paths, liveBooks, directoryEntries := explorer.ExplorePaths(ctx, identity)
		views = append(views, discovery.IdentityView{
			Identity:         identity,
			Paths:            paths,
			LiveBooks:        liveBooks,
			DirectoryEntries: directoryEntries,
		})
	}

	result := engine.Discover(ctx, views)

	outcome, err := reconciler.Reconcile(ctx, user.UID, result)
	if err != nil {
		return reconcile.Outcome{}, false, fmt.Errorf("process user %s: %w", user.UID, err)
	}
	return outcome, false, nil
}
