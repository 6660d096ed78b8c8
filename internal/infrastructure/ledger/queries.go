package ledger

import (
	"context"
	"time"

	"github.com/certenio/pending-discovery/internal/domain/models"
	"github.com/certenio/pending-discovery/pkg/canonical"
	"github.com/certenio/pending-discovery/pkg/logger"
)

// QueryPendingTxIds paginates the pending-transaction query for scope,
// stopping at a short page or once start+len reaches the reported
// total, and deduplicating while preserving first-seen order. On a
// transport failure mid-paginate it stops and returns what has been
// gathered rather than discarding prior pages.
func (c *Client) QueryPendingTxIds(ctx context.Context, scope string, pageSize, maxPages int) []string {
	seen := map[string]bool{}
	var ids []string

	start := 0
	for page := 0; page < maxPages; page++ {
		var out map[string]any
		params := map[string]any{
			"scope": canonical.URL(scope),
			"query": map[string]any{
				"queryType": "pending",
				"range":     map[string]any{"start": start, "count": pageSize},
			},
		}
		if err := c.query(ctx, params, &out); err != nil {
			logger.Logger.Debug("ledger: pending query failed, returning partial page set", "scope", scope, "error", err)
			return ids
		}

		records := pendingRecordsOf(out)
		for _, rec := range records {
			if id, ok := extractTxID(rec); ok && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}

		total, hasTotal := digInt(out, []string{"total"})
		start += len(records)
		if len(records) < pageSize {
			break
		}
		if hasTotal && start >= total {
			break
		}
	}

	return ids
}

// pendingRecordsOf probes the known locations a pending query's
// records may be found under.
func pendingRecordsOf(out map[string]any) []any {
	if pending, ok := out["pending"].(map[string]any); ok {
		if recs, ok := pending["records"].([]any); ok {
			return recs
		}
	}
	if recordType, _ := out["recordType"].(string); recordType == "range" {
		if recs, ok := out["records"].([]any); ok {
			return recs
		}
	}
	if items, ok := out["items"].([]any); ok {
		return items
	}
	if recs, ok := out["records"].([]any); ok {
		return recs
	}
	return nil
}

// QuerySignatureChain fetches raw signature-chain records for url.
func (c *Client) QuerySignatureChain(ctx context.Context, url string, start, count int, expand bool) (records []any, total int, err error) {
	var out map[string]any
	params := map[string]any{
		"scope": canonical.URL(url),
		"query": map[string]any{
			"queryType": "chain",
			"name":      "signature",
			"range": map[string]any{
				"start":  start,
				"count":  count,
				"expand": expand,
			},
		},
	}
	if err := c.query(ctx, params, &out); err != nil {
		return nil, 0, err
	}
	total, _ = digInt(out, []string{"total"})
	recs, _ := out["records"].([]any)
	return recs, total, nil
}

// QueryDirectory fetches directory entries of url as canonical URLs.
// Records in an unrecognized shape are skipped with a warning.
func (c *Client) QueryDirectory(ctx context.Context, url string, start, count int) ([]string, error) {
	var out map[string]any
	params := map[string]any{
		"scope": canonical.URL(url),
		"query": map[string]any{
			"queryType": "directory",
			"range":     map[string]any{"start": start, "count": count},
		},
	}
	if err := c.query(ctx, params, &out); err != nil {
		return nil, err
	}

	recs, _ := out["records"].([]any)
	urls := make([]string, 0, len(recs))
	for _, rec := range recs {
		if u, ok := extractDirectoryURL(rec); ok {
			urls = append(urls, canonical.URL(u))
			continue
		}
		logger.Logger.Warn("ledger: unrecognized directory record shape", "scope", url)
	}
	return urls, nil
}

// QueryTransaction fetches and fully parses a transaction, including
// signatures and status. Returns models.ErrPendingTxNotFound if the
// response carries no transaction object; a failed query returns the
// query's error.
func (c *Client) QueryTransaction(ctx context.Context, txID string) (*models.PendingTx, error) {
	var out map[string]any
	if err := c.query(ctx, map[string]any{"txid": txID}, &out); err != nil {
		return nil, err
	}

	txObj := transactionObjectOf(out)
	if txObj == nil {
		return nil, models.ErrPendingTxNotFound
	}

	return parseTransaction(txID, txObj, out), nil
}

// QueryTransactionRaw returns the raw response map for callers that
// only need the status field, avoiding the cost of a full parse
// during chain scans.
func (c *Client) QueryTransactionRaw(ctx context.Context, txID string) (map[string]any, error) {
	var out map[string]any
	if err := c.query(ctx, map[string]any{"txid": txID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// transactionObjectOf probes the known nesting locations of the
// transaction object within a queryTransaction response.
func transactionObjectOf(out map[string]any) map[string]any {
	if tx, ok := out["transaction"].(map[string]any); ok {
		return tx
	}
	if msg, ok := out["message"].(map[string]any); ok {
		if tx, ok := msg["transaction"].(map[string]any); ok {
			return tx
		}
	}
	return nil
}

func parseTransaction(txID string, txObj map[string]any, response map[string]any) *models.PendingTx {
	header, _ := txObj["header"].(map[string]any)
	body, _ := txObj["body"].(map[string]any)

	tx := &models.PendingTx{
		TxID:       txID,
		Hash:       canonical.Hash(txID),
		Status:     parseStatusV3(response["status"]),
		Signatures: extractSignaturesV3(response),
		Body:       body,
	}

	if header != nil {
		if p, ok := header["principal"].(string); ok {
			tx.Principal = canonical.URL(p)
		}
	}
	if body != nil {
		if t, ok := body["type"].(string); ok {
			tx.Type = t
		}
	}
	if expiresStr, ok := digString(response, []string{"expireAtTime"}); ok {
		if ts, err := time.Parse(time.RFC3339, expiresStr); err == nil {
			tx.ExpiresAt = &ts
		}
	}

	return tx
}
