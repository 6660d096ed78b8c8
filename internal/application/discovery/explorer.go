package discovery

import (
	"context"
	"slices"

	"github.com/certenio/pending-discovery/internal/domain/models"
	"github.com/certenio/pending-discovery/pkg/canonical"
	"github.com/certenio/pending-discovery/pkg/logger"
)

const directoryPageSize = 100

// Explorer enumerates all distinct key-page-to-key-page signing paths
// through which a user can ultimately authorize a transaction,
// bounded by maxDepth.
type Explorer struct {
	ledger   LedgerClient
	maxDepth int
}

// NewExplorer builds an Explorer with the given delegation-depth cap.
func NewExplorer(ledger LedgerClient, maxDepth int) *Explorer {
	return &Explorer{ledger: ledger, maxDepth: maxDepth}
}

// ExplorePaths runs the bounded DFS for one identity, returning every
// distinct signing path, a live snapshot of the identity's key books
// (used by the caller to refresh the stored identity), and the
// identity's directory entries (reused by Phase 2 of the discovery
// engine so the directory isn't queried twice).
func (e *Explorer) ExplorePaths(ctx context.Context, identity models.Identity) (paths []models.SigningPath, liveBooks []models.KeyBook, directoryEntries []string) {
	visited := map[string]bool{}
	directHops := map[string]bool{}
	bookURLs := map[string]bool{}

	for _, book := range identity.KeyBooks {
		bookURLs[canonical.URL(book.URL)] = true
	}
	directoryEntries = e.directoryEntries(ctx, identity.IdentityURL)
	for _, dirURL := range directoryEntries {
		if canonical.IsKeyBookURL(dirURL) {
			bookURLs[dirURL] = true
		}
	}

	for _, book := range identity.KeyBooks {
		for _, page := range book.Pages {
			pageURL := canonical.URL(page.URL)
			if !directHops[pageURL] {
				directHops[pageURL] = true
				paths = append(paths, models.SigningPath{Hops: []string{pageURL}})
			}
			for _, entry := range page.Entries {
				if entry.IsDelegate() {
					e.followDelegationChain(ctx, entry.DelegateURL, []string{pageURL}, visited, &paths, 1)
				}
			}
		}
	}

	for bookURL := range bookURLs {
		pageCount := e.ledger.QueryKeyBookPageCount(ctx, bookURL)
		if pageCount == 0 {
			continue
		}

		liveBook := models.KeyBook{URL: bookURL}
		for i := 1; i <= pageCount; i++ {
			pageURL := canonical.KeyPageURL(bookURL, i)
			page, err := e.ledger.QueryKeyPage(ctx, pageURL)
			if err != nil {
				logger.Logger.Debug("discovery: key page query failed", "url", pageURL, "error", err)
				continue
			}
			liveBook.Pages = append(liveBook.Pages, *page)

			if !directHops[pageURL] {
				directHops[pageURL] = true
				paths = append(paths, models.SigningPath{Hops: []string{pageURL}})
			}
			for _, entry := range page.Entries {
				if entry.IsDelegate() {
					e.followDelegationChain(ctx, entry.DelegateURL, []string{pageURL}, visited, &paths, 1)
				}
			}
		}
		liveBooks = append(liveBooks, liveBook)
	}

	return paths, liveBooks, directoryEntries
}

// followDelegationChain is the bounded DFS described in §4.5.1: it
// terminates on a revisited target, a target already on the current
// path, a depth overrun, or a target that does not exist, and otherwise
// records the chain and recurses into every delegate the target's key
// page references.
func (e *Explorer) followDelegationChain(ctx context.Context, target string, currentPath []string, visited map[string]bool, results *[]models.SigningPath, depth int) {
	target = canonical.URL(target)
	if visited[target] || depth > e.maxDepth || slices.Contains(currentPath, target) {
		return
	}
	visited[target] = true

	if !e.ledger.AccountExists(ctx, target) {
		return
	}

	newPath := make([]string, len(currentPath)+1)
	copy(newPath, currentPath)
	newPath[len(currentPath)] = target
	*results = append(*results, models.SigningPath{Hops: newPath})

	page, err := e.ledger.QueryKeyPage(ctx, target)
	if err != nil {
		logger.Logger.Debug("discovery: delegate key page unreadable", "url", target, "error", err)
		return
	}
	for _, entry := range page.Entries {
		if entry.IsDelegate() {
			e.followDelegationChain(ctx, entry.DelegateURL, newPath, visited, results, depth+1)
		}
	}
}

// directoryEntries pages through the identity URL's directory,
// returning every entry it finds. Transport failures stop pagination
// and return what has been gathered so far.
func (e *Explorer) directoryEntries(ctx context.Context, identityURL string) []string {
	var all []string
	start := 0
	for {
		page, err := e.ledger.QueryDirectory(ctx, identityURL, start, directoryPageSize)
		if err != nil {
			logger.Logger.Debug("discovery: directory query failed", "url", identityURL, "error", err)
			return all
		}
		all = append(all, page...)
		if len(page) < directoryPageSize {
			return all
		}
		start += len(page)
	}
}
