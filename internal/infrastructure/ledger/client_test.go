// SPDX-License-Identifier: AGPL-3.0-or-later
package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rpcServer(t *testing.T, handler func(method string, params json.RawMessage) (any, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		paramsRaw := json.RawMessage{}
		body := struct {
			JSONRPC string          `json:"jsonrpc"`
			ID      string          `json:"id"`
			Method  string          `json:"method"`
			Params  json.RawMessage `json:"params"`
		}{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		paramsRaw = body.Params
		req.Method = body.Method

		result, rpcErr := handler(req.Method, paramsRaw)

		w.Header().Set("Content-Type", "application/json")
		if rpcErr != nil {
			_ = json.NewEncoder(w).Encode(map[string]any{"error": rpcErr})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
	}))
}

func TestClient_AccountExists(t *testing.T) {
	srv := rpcServer(t, func(method string, params json.RawMessage) (any, *rpcError) {
		return map[string]any{"type": "keyPage"}, nil
	})
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, 0)
	assert.True(t, c.AccountExists(context.Background(), "acc://alice.acme/book/1"))
}

func TestClient_AccountExists_ErrorIsFalse(t *testing.T) {
	srv := rpcServer(t, func(method string, params json.RawMessage) (any, *rpcError) {
		return nil, &rpcError{Code: -32000, Message: "not found"}
	})
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, 0)
	assert.False(t, c.AccountExists(context.Background(), "acc://missing.acme"))
}

func TestClient_QueryKeyBookPageCount(t *testing.T) {
	srv := rpcServer(t, func(method string, params json.RawMessage) (any, *rpcError) {
		return map[string]any{"type": "keyBook", "pageCount": 3}, nil
	})
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, 0)
	assert.Equal(t, 3, c.QueryKeyBookPageCount(context.Background(), "acc://alice.acme/book"))
}

func TestClient_QueryKeyBookPageCount_NotAKeyBook(t *testing.T) {
	srv := rpcServer(t, func(method string, params json.RawMessage) (any, *rpcError) {
		return map[string]any{"type": "keyPage"}, nil
	})
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, 0)
	assert.Equal(t, 0, c.QueryKeyBookPageCount(context.Background(), "acc://alice.acme/book/1"))
}

func TestClient_QueryKeyPage(t *testing.T) {
	srv := rpcServer(t, func(method string, params json.RawMessage) (any, *rpcError) {
		return map[string]any{
			"type":      "keyPage",
			"version":   float64(2),
			"threshold": float64(1),
			"keys": []any{
				map[string]any{"publicKeyHash": "AABB"},
				map[string]any{"delegate": "acc://corp.acme/book/1"},
			},
		}, nil
	})
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, 0)
	page, err := c.QueryKeyPage(context.Background(), "acc://alice.acme/book/1")
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "aabb", page.Entries[0].PublicKeyHash)
	assert.Equal(t, "acc://corp.acme/book/1", page.Entries[1].DelegateURL)
	assert.True(t, page.Entries[1].IsDelegate())
}

func TestClient_QueryPendingTxIds_Pagination(t *testing.T) {
	calls := 0
	srv := rpcServer(t, func(method string, params json.RawMessage) (any, *rpcError) {
		calls++
		if calls == 1 {
			return map[string]any{
				"pending": map[string]any{"records": []any{"acc://x/y@1", "acc://x/y@2"}},
				"total":   3,
			}, nil
		}
		return map[string]any{
			"pending": map[string]any{"records": []any{"acc://x/y@3"}},
			"total":   3,
		}, nil
	})
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, 0)
	ids := c.QueryPendingTxIds(context.Background(), "acc://alice.acme/book/1", 2, 5)
	assert.Equal(t, []string{"acc://x/y@1", "acc://x/y@2", "acc://x/y@3"}, ids)
}

func TestClient_QueryTransaction_NestedSignatures(t *testing.T) {
	srv := rpcServer(t, func(method string, params json.RawMessage) (any, *rpcError) {
		return map[string]any{
			"status": "pending",
			"transaction": map[string]any{
				"header": map[string]any{"principal": "acc://alice.acme/tokens"},
				"body":   map[string]any{"type": "sendTokens"},
			},
			"signatures": map[string]any{
				"records": []any{
					map[string]any{
						"signatures": map[string]any{
							"records": []any{
								map[string]any{
									"message": map[string]any{
										"type": "signature",
										"signature": map[string]any{
											"signer":        "acc://bob.acme/book/1",
											"publicKeyHash": "BBCC",
											"timestamp":     float64(1700000000000000),
										},
									},
								},
							},
						},
					},
				},
			},
		}, nil
	})
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, 0)
	tx, err := c.QueryTransaction(context.Background(), "acc://alice.acme@txhash")
	require.NoError(t, err)
	assert.Equal(t, "acc://alice.acme/tokens", tx.Principal)
	assert.Equal(t, "sendTokens", tx.Type)
	require.Len(t, tx.Signatures, 1)
	assert.Equal(t, "acc://bob.acme/book/1", tx.Signatures[0].Signer)
	assert.Equal(t, "bbcc", tx.Signatures[0].PublicKeyHash)
}

func TestClient_QueryDirectory(t *testing.T) {
	srv := rpcServer(t, func(method string, params json.RawMessage) (any, *rpcError) {
		return map[string]any{
			"records": []any{
				"acc://alice.acme/book",
				map[string]any{"value": "acc://alice.acme/tokens"},
				map[string]any{"url": "acc://alice.acme/data"},
				map[string]any{"account": map[string]any{"url": "acc://alice.acme/staking"}},
				42, // unrecognized shape, skipped
			},
		}, nil
	})
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, 0)
	urls, err := c.QueryDirectory(context.Background(), "acc://alice.acme", 0, 10)
	require.NoError(t, err)
	assert.Len(t, urls, 4)
}
