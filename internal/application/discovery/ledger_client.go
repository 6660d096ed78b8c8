// SPDX-License-Identifier: AGPL-3.0-or-later

// Package discovery implements the signing-path explorer and the
// three-phase discovery engine: the per-user core that turns a user's
// identities and the ledger's pending set into a deduplicated set of
// eligible pending actions.
package discovery

import (
	"context"

	"github.com/certenio/pending-discovery/internal/domain/models"
)

// LedgerClient is the subset of internal/infrastructure/ledger.Client
// the explorer and engine depend on. Accepting an interface here (and
// returning the concrete struct from the ledger package) keeps this
// package testable without a live RPC endpoint.
type LedgerClient interface {
	AccountExists(ctx context.Context, url string) bool
	QueryKeyBookPageCount(ctx context.Context, url string) int
	QueryKeyPage(ctx context.Context, url string) (*models.KeyPage, error)
	QueryDirectory(ctx context.Context, url string, start, count int) ([]string, error)
	QueryPendingTxIds(ctx context.Context, scope string, pageSize, maxPages int) []string
	QuerySignatureChain(ctx context.Context, url string, start, count int, expand bool) ([]any, int, error)
	QueryTransaction(ctx context.Context, txID string) (*models.PendingTx, error)
	QueryTransactionRaw(ctx context.Context, txID string) (map[string]any, error)
}
