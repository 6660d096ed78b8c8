package ledger

import (
	"strings"

	"github.com/certenio/pending-discovery/internal/domain/models"
	"github.com/certenio/pending-discovery/pkg/canonical"
)

// accountTypeIs probes the common locations the ledger reports an
// account's "type" field under.
func accountTypeIs(m map[string]any, want string) bool {
	for _, path := range [][]string{{"type"}, {"account", "type"}, {"data", "type"}} {
		if v, ok := digString(m, path); ok && strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

// firstInt returns the first present integer field among the given
// dotted paths, checking a bare top-level key first.
func firstInt(m map[string]any, topKey string, paths ...[]string) int {
	if v, ok := digInt(m, []string{topKey}); ok {
		return v
	}
	for _, p := range paths {
		if v, ok := digInt(m, p); ok {
			return v
		}
	}
	return 0
}

func dig(m map[string]any, path []string) (any, bool) {
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

func digString(m map[string]any, path []string) (string, bool) {
	v, ok := dig(m, path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func digInt(m map[string]any, path []string) (int, bool) {
	v, ok := dig(m, path)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

func digFloat(m map[string]any, path []string) (float64, bool) {
	v, ok := dig(m, path)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// parseKeyPage builds a models.KeyPage from the ledger's raw keyPage
// account document.
func parseKeyPage(url string, m map[string]any) *models.KeyPage {
	page := &models.KeyPage{URL: url}

	if v, ok := digFloat(m, []string{"version"}); ok {
		page.Version = uint64(v)
	}

	threshold := uint64(1)
	if v, ok := digFloat(m, []string{"acceptThreshold"}); ok {
		threshold = uint64(v)
	} else if v, ok := digFloat(m, []string{"threshold"}); ok {
		threshold = uint64(v)
	}
	page.Threshold = threshold

	if v, ok := digFloat(m, []string{"creditBalance"}); ok {
		page.CreditBalance = int64(v)
	}

	rawKeys, _ := m["keys"].([]any)
	for _, rk := range rawKeys {
		entry, ok := rk.(map[string]any)
		if !ok {
			continue
		}
		if del, ok := entry["delegate"].(string); ok && del != "" {
			page.Entries = append(page.Entries, models.KeyEntry{
				Kind:        models.KeyEntryKindDelegate,
				DelegateURL: canonical.URL(del),
			})
			continue
		}
		if hash, ok := entry["publicKeyHash"].(string); ok && hash != "" {
			page.Entries = append(page.Entries, models.KeyEntry{
				Kind:          models.KeyEntryKindKey,
				PublicKeyHash: canonical.Hash(hash),
			})
		}
	}

	return page
}

// extractTxID probes the known record shapes for a pending-transaction
// ID: record.value (string); record.value.{txID,txId,id}; record.value.
// message.txID; record.{txid,hash}; or a bare "acc://..." string.
func extractTxID(record any) (string, bool) {
	if s, ok := record.(string); ok {
		if strings.HasPrefix(s, "acc://") {
			return s, true
		}
	}

	rec, ok := record.(map[string]any)
	if !ok {
		return "", false
	}

	if v, ok := rec["value"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
		if vm, ok := v.(map[string]any); ok {
			for _, key := range []string{"txID", "txId", "id"} {
				if s, ok := vm[key].(string); ok && s != "" {
					return s, true
				}
			}
			if msg, ok := vm["message"].(map[string]any); ok {
				if s, ok := msg["txID"].(string); ok && s != "" {
					return s, true
				}
			}
		}
	}

	for _, key := range []string{"txid", "hash"} {
		if s, ok := rec[key].(string); ok && s != "" {
			return s, true
		}
	}

	return "", false
}

// extractDirectoryURL probes the known record shapes for a directory
// entry's account URL.
func extractDirectoryURL(record any) (string, bool) {
	if s, ok := record.(string); ok && s != "" {
		return s, true
	}
	rec, ok := record.(map[string]any)
	if !ok {
		return "", false
	}
	if s, ok := rec["value"].(string); ok && s != "" {
		return s, true
	}
	if s, ok := rec["url"].(string); ok && s != "" {
		return s, true
	}
	if acct, ok := rec["account"].(map[string]any); ok {
		if s, ok := acct["url"].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// parseStatusV3 interprets the ledger's polymorphic status field:
// a bare string, a numeric-code map ({code:202} -> pending, 201 ->
// delivered, else unknown), a string-code map, or a boolean-flags map.
func parseStatusV3(raw any) models.TxStatus {
	switch v := raw.(type) {
	case string:
		return normalizeStatusString(v)
	case map[string]any:
		if code, ok := v["code"]; ok {
			switch c := code.(type) {
			case float64:
				switch int(c) {
				case 202:
					return models.TxStatusPending
				case 201:
					return models.TxStatusDelivered
				default:
					return models.TxStatusUnknown
				}
			case string:
				return normalizeStatusString(c)
			}
		}
		if pending, ok := v["pending"].(bool); ok && pending {
			return models.TxStatusPending
		}
		if delivered, ok := v["delivered"].(bool); ok && delivered {
			return models.TxStatusDelivered
		}
	}
	return models.TxStatusUnknown
}

// ParseStatusFromRaw extracts and parses the "status" field of a raw
// queryTransactionRaw response, for callers that want the status
// without paying the cost of a full transaction parse.
func ParseStatusFromRaw(raw map[string]any) models.TxStatus {
	if raw == nil {
		return models.TxStatusUnknown
	}
	return parseStatusV3(raw["status"])
}

func normalizeStatusString(s string) models.TxStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return models.TxStatusPending
	case "delivered":
		return models.TxStatusDelivered
	case "remote":
		return models.TxStatusRemote
	case "failed":
		return models.TxStatusFailed
	case "expired":
		return models.TxStatusExpired
	default:
		return models.TxStatusUnknown
	}
}
