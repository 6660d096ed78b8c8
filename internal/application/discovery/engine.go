// SPDX-License-Identifier: AGPL-3.0-or-later
package discovery

import (
	"context"

	"github.com/certenio/pending-discovery/internal/domain/models"
	"github.com/certenio/pending-discovery/internal/infrastructure/ledger"
	"github.com/certenio/pending-discovery/pkg/canonical"
	"github.com/certenio/pending-discovery/pkg/logger"
)

const signatureChainScanWindow = 30

// IdentityView bundles one identity with the signing paths, live
// key-book snapshot, and directory entries the explorer already
// gathered for it, so the engine doesn't re-issue those RPCs.
type IdentityView struct {
	Identity         models.Identity
	Paths            []models.SigningPath
	LiveBooks        []models.KeyBook
	DirectoryEntries []string
}

// Result is the per-user output of a discovery cycle.
type Result struct {
	Eligible         map[string]models.EligibleTransaction // keyed by CanonicalHash(tx)
	SignaturesByHash map[string][]models.SignatureRecord
	RPCAttempts      int
	RPCFailures      int
}

// TotalLedgerUnavailable reports whether every counted RPC of this
// result's cycle failed, the guard the reconciler uses to avoid
// flapping a user's inbox to empty on a transient outage. Only
// transaction, raw-transaction and signature-chain queries are
// counted; pending-list, directory and key-page queries report no
// failure to the engine, so a cycle with no counted RPC reports false.
func (r Result) TotalLedgerUnavailable() bool {
	return r.RPCAttempts > 0 && r.RPCFailures == r.RPCAttempts
}

// Engine runs the three-phase discovery algorithm per user.
type Engine struct {
	ledger          LedgerClient
	pendingPageSize int
	pendingMaxPages int
}

// NewEngine builds a discovery Engine bounding each pending-set query
// to pendingPageSize per page and pendingMaxPages pages.
func NewEngine(ledgerClient LedgerClient, pendingPageSize, pendingMaxPages int) *Engine {
	return &Engine{ledger: ledgerClient, pendingPageSize: pendingPageSize, pendingMaxPages: pendingMaxPages}
}

// Discover runs phases 1-4 across every identity view for one user.
func (e *Engine) Discover(ctx context.Context, views []IdentityView) Result {
	res := Result{
		Eligible:         map[string]models.EligibleTransaction{},
		SignaturesByHash: map[string][]models.SignatureRecord{},
	}
	eligible := map[string]*models.EligibleTransaction{}

	keyHashes := computeKeyHashSet(views)

	e.phase1SigningPaths(ctx, views, eligible, res.SignaturesByHash, &res)
	e.phase2DirectAccounts(ctx, views, keyHashes, eligible, res.SignaturesByHash, &res)
	e.phase3SignatureChainScan(ctx, views, keyHashes, eligible, res.SignaturesByHash, &res)

	for hash, et := range eligible {
		res.Eligible[hash] = *et
	}
	return res
}

// computeKeyHashSet extracts the user's key-hash set U across every
// stored key-page of every identity: the ground truth of "has the
// user already signed?".
func computeKeyHashSet(views []IdentityView) map[string]bool {
	set := map[string]bool{}
	for _, v := range views {
		for _, book := range v.Identity.KeyBooks {
			for _, page := range book.Pages {
				for _, entry := range page.Entries {
					if !entry.IsDelegate() && entry.PublicKeyHash != "" {
						set[canonical.Hash(entry.PublicKeyHash)] = true
					}
				}
			}
		}
	}
	return set
}

func userHasSigned(sigs []models.SignatureRecord, keyHashes map[string]bool) bool {
	for _, s := range sigs {
		if s.PublicKeyHash != "" && keyHashes[canonical.Hash(s.PublicKeyHash)] {
			return true
		}
	}
	return false
}

func determineCategory(tx models.PendingTx, identityURL string) models.Category {
	if canonical.ExtractADI(tx.Principal) == canonical.URL(identityURL) {
		return models.CategoryInitiatedByUser
	}
	return models.CategoryRequiringSignature
}

func mergeEligible(eligible map[string]*models.EligibleTransaction, tx models.PendingTx, path models.SigningPath, category models.Category) {
	hash := canonical.Hash(tx.Hash)
	et, ok := eligible[hash]
	if !ok {
		et = &models.EligibleTransaction{Tx: tx}
		eligible[hash] = et
	}
	et.MergePath(path, category)
}

// phase1SigningPaths implements §4.6 Phase 1: for each multi-hop
// signing path, the prior hop's signature (not the user's own key) is
// the predicate for whether the path still has work to do.
func (e *Engine) phase1SigningPaths(ctx context.Context, views []IdentityView, eligible map[string]*models.EligibleTransaction, sigCache map[string][]models.SignatureRecord, res *Result) {
	for _, view := range views {
		for _, path := range view.Paths {
			if len(path.Hops) < 2 {
				continue
			}
			final := path.Hops[len(path.Hops)-1]
			prior := canonical.URL(path.Hops[len(path.Hops)-2])

			txIDs := e.ledger.QueryPendingTxIds(ctx, final, e.pendingPageSize, e.pendingMaxPages)
			for _, txID := range txIDs {
				res.RPCAttempts++
				tx, err := e.ledger.QueryTransaction(ctx, txID)
				if err != nil {
					res.RPCFailures++
					logger.Logger.Debug("discovery: phase1 transaction query failed", "txid", txID, "error", err)
					continue
				}
				sigCache[canonical.Hash(tx.Hash)] = tx.Signatures

				priorSigned := false
				for _, sig := range tx.Signatures {
					if canonical.URL(sig.Signer) == prior {
						priorSigned = true
						break
					}
				}
				if !priorSigned {
					mergeEligible(eligible, *tx, path, models.CategoryRequiringSignature)
				}
			}
		}
	}
}

// phase2DirectAccounts implements §4.6 Phase 2: every account the
// identity directly or transitively owns is checked against the
// user's own key-hash set.
func (e *Engine) phase2DirectAccounts(ctx context.Context, views []IdentityView, keyHashes map[string]bool, eligible map[string]*models.EligibleTransaction, sigCache map[string][]models.SignatureRecord, res *Result) {
	for _, view := range views {
		accounts := e.enumerateAccounts(view)
		for _, accountURL := range accounts {
			txIDs := e.ledger.QueryPendingTxIds(ctx, accountURL, e.pendingPageSize, e.pendingMaxPages)
			for _, txID := range txIDs {
				res.RPCAttempts++
				tx, err := e.ledger.QueryTransaction(ctx, txID)
				if err != nil {
					res.RPCFailures++
					logger.Logger.Debug("discovery: phase2 transaction query failed", "txid", txID, "error", err)
					continue
				}
				sigCache[canonical.Hash(tx.Hash)] = tx.Signatures

				if userHasSigned(tx.Signatures, keyHashes) {
					continue
				}
				category := determineCategory(*tx, view.Identity.IdentityURL)
				mergeEligible(eligible, *tx, models.SigningPath{Hops: []string{accountURL}}, category)
			}
		}
	}
}

// enumerateAccounts deduplicates, canonically, every account an
// identity might have pending work against: the identity itself, its
// stored sub-accounts, every live key-page under its key-books, and
// every directory entry.
func (e *Engine) enumerateAccounts(view IdentityView) []string {
	seen := map[string]bool{}
	var out []string
	add := func(url string) {
		u := canonical.URL(url)
		if u != "" && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}

	add(view.Identity.IdentityURL)
	for _, a := range view.Identity.Accounts {
		add(a.URL)
	}
	for _, book := range view.LiveBooks {
		for _, page := range book.Pages {
			add(page.URL)
		}
	}
	for _, d := range view.DirectoryEntries {
		add(d)
	}

	return out
}

// phase3SignatureChainScan implements §4.6 Phase 3: a fallback that
// catches cross-identity signature requests missed by phases 1-2 by
// scanning the most recent signature-chain entries of every key-book.
func (e *Engine) phase3SignatureChainScan(ctx context.Context, views []IdentityView, keyHashes map[string]bool, eligible map[string]*models.EligibleTransaction, sigCache map[string][]models.SignatureRecord, res *Result) {
	seenHashes := map[string]bool{}
	for hash := range eligible {
		seenHashes[hash] = true
	}

	for _, view := range views {
		bookURLs := bookURLsFor(view)
		for _, bookURL := range bookURLs {
			res.RPCAttempts++
			_, total, err := e.ledger.QuerySignatureChain(ctx, bookURL, 0, 1, false)
			if err != nil {
				res.RPCFailures++
				logger.Logger.Debug("discovery: phase3 chain head query failed", "book", bookURL, "error", err)
				continue
			}

			count := total
			if count > signatureChainScanWindow {
				count = signatureChainScanWindow
			}
			if count == 0 {
				continue
			}
			start := total - count

			res.RPCAttempts++
			records, _, err := e.ledger.QuerySignatureChain(ctx, bookURL, start, count, true)
			if err != nil {
				res.RPCFailures++
				logger.Logger.Debug("discovery: phase3 chain page query failed", "book", bookURL, "error", err)
				continue
			}

			for _, rec := range records {
				e.scanSignatureRequestRecord(ctx, rec, bookURL, keyHashes, seenHashes, eligible, sigCache, res)
			}
		}
	}
}

func bookURLsFor(view IdentityView) []string {
	seen := map[string]bool{}
	var out []string
	add := func(u string) {
		cu := canonical.URL(u)
		if cu != "" && !seen[cu] {
			seen[cu] = true
			out = append(out, cu)
		}
	}
	for _, b := range view.Identity.KeyBooks {
		add(b.URL)
	}
	for _, d := range view.DirectoryEntries {
		if canonical.IsKeyBookURL(d) {
			add(d)
		}
	}
	return out
}

func (e *Engine) scanSignatureRequestRecord(ctx context.Context, rec any, bookURL string, keyHashes, seenHashes map[string]bool, eligible map[string]*models.EligibleTransaction, sigCache map[string][]models.SignatureRecord, res *Result) {
	message := signatureRequestMessage(rec)
	if message == nil {
		return
	}

	produced, _ := digPath(message, "produced", "records")
	records, _ := produced.([]any)
	for _, p := range records {
		txID, ok := producedTxID(p)
		if !ok {
			continue
		}
		hash := canonical.Hash(txID)
		if hash == "" || seenHashes[hash] {
			continue
		}
		seenHashes[hash] = true

		res.RPCAttempts++
		raw, err := e.ledger.QueryTransactionRaw(ctx, txID)
		if err != nil {
			res.RPCFailures++
			logger.Logger.Debug("discovery: phase3 raw status query failed", "txid", txID, "error", err)
			continue
		}
		if ledger.ParseStatusFromRaw(raw) != models.TxStatusPending {
			continue
		}

		res.RPCAttempts++
		tx, err := e.ledger.QueryTransaction(ctx, txID)
		if err != nil {
			res.RPCFailures++
			logger.Logger.Debug("discovery: phase3 transaction query failed", "txid", txID, "error", err)
			continue
		}
		sigCache[hash] = tx.Signatures

		if userHasSigned(tx.Signatures, keyHashes) {
			continue
		}
		mergeEligible(eligible, *tx, models.SigningPath{Hops: []string{bookURL}}, models.CategoryRequiringSignature)
	}
}

// signatureRequestMessage descends into rec.value.message and requires
// message.type == "signatureRequest".
func signatureRequestMessage(rec any) map[string]any {
	recMap, ok := rec.(map[string]any)
	if !ok {
		return nil
	}
	value, ok := recMap["value"].(map[string]any)
	if !ok {
		return nil
	}
	message, ok := value["message"].(map[string]any)
	if !ok {
		return nil
	}
	if t, _ := message["type"].(string); t != "signatureRequest" {
		return nil
	}
	return message
}

func producedTxID(p any) (string, bool) {
	m, ok := p.(map[string]any)
	if !ok {
		return "", false
	}
	if s, ok := m["value"].(string); ok && s != "" {
		return s, true
	}
	if s, ok := m["id"].(string); ok && s != "" {
		return s, true
	}
	return "", false
}

func digPath(m map[string]any, path ...string) (any, bool) {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
