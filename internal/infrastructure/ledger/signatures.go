package ledger

import (
	"fmt"
	"time"

	"github.com/certenio/pending-discovery/internal/domain/models"
	"github.com/certenio/pending-discovery/pkg/canonical"
)

// extractSignaturesV3 merges the three signature shapes the ledger's
// v3 transaction response may populate: nested
// (signatures.records[*].signatures.records[*]), paginated
// (signatureBooks[*].pages[*].signatures), and flat legacy. A transaction may populate more than one shape; all
// are scanned and the results deduplicated by (signer, publicKeyHash,
// timestampMs).
func extractSignaturesV3(response map[string]any) []models.SignatureRecord {
	seen := map[string]bool{}
	var out []models.SignatureRecord

	add := func(rec models.SignatureRecord) {
		key := fmt.Sprintf("%s|%s|%d", rec.Signer, rec.PublicKeyHash, rec.Timestamp.UnixMilli())
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, rec)
	}

	for _, rec := range extractNestedSignatures(response) {
		add(rec)
	}
	for _, rec := range extractPaginatedSignatures(response) {
		add(rec)
	}
	for _, rec := range extractFlatLegacySignatures(response) {
		add(rec)
	}

	return out
}

// extractNestedSignatures walks response.signatures.records[*].
// signatures.records[*].message where message.type == "signature".
func extractNestedSignatures(response map[string]any) []models.SignatureRecord {
	var out []models.SignatureRecord

	outerRecords := recordsOf(response["signatures"])
	for _, outer := range outerRecords {
		outerMap, ok := outer.(map[string]any)
		if !ok {
			continue
		}
		innerRecords := recordsOf(outerMap["signatures"])
		for _, inner := range innerRecords {
			innerMap, ok := inner.(map[string]any)
			if !ok {
				continue
			}
			message, ok := innerMap["message"].(map[string]any)
			if !ok {
				continue
			}
			if rec, ok := signatureRecordFromMessage(message); ok {
				out = append(out, rec)
			}
		}
	}
	return out
}

// extractPaginatedSignatures walks response.signatureBooks[*].pages[*].
// signatures, which may be a bare array or {records:[...]}.
func extractPaginatedSignatures(response map[string]any) []models.SignatureRecord {
	var out []models.SignatureRecord

	books, _ := response["signatureBooks"].([]any)
	for _, b := range books {
		book, ok := b.(map[string]any)
		if !ok {
			continue
		}
		pages, _ := book["pages"].([]any)
		for _, p := range pages {
			page, ok := p.(map[string]any)
			if !ok {
				continue
			}
			for _, entry := range recordsOf(page["signatures"]) {
				entryMap, ok := entry.(map[string]any)
				if !ok {
					continue
				}
				message, ok := entryMap["message"].(map[string]any)
				if !ok {
					continue
				}
				if rec, ok := signatureRecordFromMessage(message); ok {
					out = append(out, rec)
				}
			}
		}
	}
	return out
}

// extractFlatLegacySignatures walks response.signatures when it is a
// bare array of {signer, signatures:[...] | single fields}.
func extractFlatLegacySignatures(response map[string]any) []models.SignatureRecord {
	arr, ok := response["signatures"].([]any)
	if !ok {
		return nil
	}

	var out []models.SignatureRecord
	for _, s := range arr {
		set, ok := s.(map[string]any)
		if !ok {
			continue
		}
		outerSigner := signerURLOf(set["signer"])

		if inner, ok := set["signatures"].([]any); ok {
			for _, is := range inner {
				innerMap, _ := is.(map[string]any)
				rec := signatureRecordFromFields(innerMap)
				if rec.Signer == "" {
					rec.Signer = outerSigner
				}
				out = append(out, rec)
			}
			continue
		}

		rec := signatureRecordFromFields(set)
		if rec.Signer == "" {
			rec.Signer = outerSigner
		}
		out = append(out, rec)
	}
	return out
}

// recordsOf normalizes a field that may be a bare array or an
// envelope of the form {records:[...]}.
func recordsOf(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case map[string]any:
		if recs, ok := t["records"].([]any); ok {
			return recs
		}
	}
	return nil
}

// signerURLOf reads a signer field that may be a bare string or a
// {url: "..."} object.
func signerURLOf(v any) string {
	switch t := v.(type) {
	case string:
		return canonical.URL(t)
	case map[string]any:
		if s, ok := t["url"].(string); ok {
			return canonical.URL(s)
		}
	}
	return ""
}

// signatureRecordFromMessage builds a SignatureRecord from a
// message.signature object, descending into nested delegated
// signatures to find the innermost signer.
func signatureRecordFromMessage(message map[string]any) (models.SignatureRecord, bool) {
	sigType, _ := message["type"].(string)
	if sigType != "signature" {
		return models.SignatureRecord{}, false
	}
	sig, ok := message["signature"].(map[string]any)
	if !ok {
		return models.SignatureRecord{}, false
	}
	return signatureRecordFromFields(innermostSignature(sig)), true
}

// innermostSignature descends into nested delegated-signature forms
// ("signature" field pointing at another signature object) until it
// finds one whose signer is a plain string.
func innermostSignature(sig map[string]any) map[string]any {
	for depth := 0; depth < 16; depth++ {
		if _, isString := sig["signer"].(string); isString {
			return sig
		}
		nested, ok := sig["signature"].(map[string]any)
		if !ok {
			return sig
		}
		sig = nested
	}
	return sig
}

func signatureRecordFromFields(fields map[string]any) models.SignatureRecord {
	if fields == nil {
		return models.SignatureRecord{}
	}

	rec := models.SignatureRecord{Vote: models.VoteApprove}

	if s, ok := fields["signer"].(string); ok {
		rec.Signer = canonical.URL(s)
	} else if rec.Signer == "" {
		rec.Signer = signerURLOf(fields["signer"])
	}

	if h, ok := fields["publicKeyHash"].(string); ok {
		rec.PublicKeyHash = canonical.Hash(h)
	} else if h, ok := fields["publicKey"].(string); ok {
		rec.PublicKeyHash = canonical.Hash(h)
	}

	if v, ok := fields["vote"].(string); ok && v != "" {
		switch v {
		case "reject":
			rec.Vote = models.VoteReject
		case "abstain":
			rec.Vote = models.VoteAbstain
		default:
			rec.Vote = models.VoteApprove
		}
	}

	rec.Timestamp = timestampOf(fields["timestamp"])

	return rec
}

// timestampOf interprets a raw numeric timestamp: v3 delivers
// microseconds (> 10^15), legacy delivers seconds (< 10^12).
func timestampOf(v any) time.Time {
	f, ok := v.(float64)
	if !ok {
		return time.Time{}
	}
	switch {
	case f > 1e15:
		return time.UnixMicro(int64(f))
	case f < 1e12:
		return time.Unix(int64(f), 0)
	default:
		return time.UnixMilli(int64(f))
	}
}
