// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ledger wraps the Accumulate-style JSON-RPC "query" method
// behind a small typed vocabulary, with tolerant parsing of the
// ledger's loosely-structured v3 response envelopes. It is
// hand-rolled against net/http in the same style as the teacher's
// pkg/checksum.ComputeRemoteChecksum client: an explicit http.Client
// with a fixed timeout, context-scoped requests, and responses that
// degrade to empty/nil rather than panicking on an unexpected shape.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/certenio/pending-discovery/internal/domain/models"
	"github.com/certenio/pending-discovery/pkg/canonical"
	"github.com/certenio/pending-discovery/pkg/logger"
	"github.com/certenio/pending-discovery/pkg/retry"
)

const userAgent = "pending-discovery/1.0"

// Client is a JSON-RPC 2.0 client over a single "query" method,
// exposing typed wrappers for every ledger read the discovery engine
// needs.
type Client struct {
	apiURL     string
	httpClient *http.Client
	retryOpts  retry.Options
}

// New builds a Client targeting apiURL, applying requestTimeout to
// every individual RPC and retrying transient failures up to
// maxRetries times.
func New(apiURL string, requestTimeout time.Duration, maxRetries int) *Client {
	opts := retry.DefaultOptions()
	opts.MaxRetries = maxRetries
	opts.IsRetryable = func(err error) bool {
		if errors.Is(err, models.ErrRPCProtocol) {
			return false
		}
		return errors.Is(err, models.ErrTransientLedger) || retry.IsTransient(err)
	}
	return &Client{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		retryOpts:  opts,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("ledger RPC error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// query issues a single JSON-RPC "query" call with the given params
// and decodes the result into out. Transport-level failures are
// retried per the client's retry options; a JSON-RPC error envelope is
// surfaced immediately (it is a protocol error, not a transient one)
// wrapped in models.ErrRPCProtocol.
func (c *Client) query(ctx context.Context, params any, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.New().String(),
		Method:  "query",
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}

	var raw json.RawMessage
	doErr := retry.Do(ctx, c.retryOpts, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrTransientLedger, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: http status %d", models.ErrTransientLedger, resp.StatusCode)
		}

		var envelope rpcResponse
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return fmt.Errorf("decode rpc response: %w", err)
		}
		if envelope.Error != nil {
			// Protocol errors are not retried; abort the retry loop by
			// returning a non-transient error.
			raw = nil
			return fmt.Errorf("%w: %s", models.ErrRPCProtocol, envelope.Error.Error())
		}
		raw = envelope.Result
		return nil
	})
	if doErr != nil {
		return doErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// AccountExists reports whether a `{scope}` query against url succeeds.
// Any RPC error (transport or protocol) is treated as "does not exist"
// per §4.3: accountExists only distinguishes success from failure.
func (c *Client) AccountExists(ctx context.Context, url string) bool {
	var out json.RawMessage
	err := c.query(ctx, map[string]any{"scope": canonical.URL(url)}, &out)
	return err == nil
}

// QueryKeyBookPageCount reads the pageCount of a key-book account,
// returning 0 if url is not a key book or the field is missing.
func (c *Client) QueryKeyBookPageCount(ctx context.Context, url string) int {
	var out map[string]any
	if err := c.query(ctx, map[string]any{"scope": canonical.URL(url)}, &out); err != nil {
		logger.Logger.Debug("ledger: pageCount query failed", "url", url, "error", err)
		return 0
	}
	if !accountTypeIs(out, "keyBook") {
		return 0
	}
	return firstInt(out, "pageCount", []string{"account", "pageCount"}, []string{"data", "pageCount"})
}

// QueryKeyPage fetches and parses a key page. Returns
// models.ErrKeyPageNotFound if the account is not a key page; a failed
// query (a missing account included) returns the query's error.
func (c *Client) QueryKeyPage(ctx context.Context, url string) (*models.KeyPage, error) {
	var out map[string]any
	if err := c.query(ctx, map[string]any{"scope": canonical.URL(url)}, &out); err != nil {
		return nil, err
	}
	if !accountTypeIs(out, "keyPage") {
		return nil, models.ErrKeyPageNotFound
	}
	return parseKeyPage(canonical.URL(url), out), nil
}
