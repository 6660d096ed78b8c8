// SPDX-License-Identifier: AGPL-3.0-or-later
package models

// KeyBook is an authority structure owning an ordered set of key pages,
// addressed as "book/N" for N in [1, len(Pages)] (or however many the
// ledger's pageCount reports — that count is authoritative, not the
// length of this slice, which may be a stale store snapshot).
type KeyBook struct {
	URL   string // canonical URL
	Pages []KeyPage
}

// KeyPage holds a signing threshold and an ordered set of entries, each
// either a direct key or a delegate reference to another key page.
type KeyPage struct {
	URL           string // canonical URL
	Version       uint64
	Threshold     uint64
	CreditBalance int64
	Entries       []KeyEntry
}

// KeyEntryKind tags a KeyEntry as either a direct key or a delegate.
type KeyEntryKind int

const (
	KeyEntryKindKey KeyEntryKind = iota
	KeyEntryKindDelegate
)

// KeyEntry is a tagged variant: a direct public-key-hash entry, or a
// delegate entry pointing at another key page URL.
type KeyEntry struct {
	Kind          KeyEntryKind
	PublicKeyHash string // canonical hash, only set when Kind == KeyEntryKindKey
	DelegateURL   string // canonical URL, only set when Kind == KeyEntryKindDelegate
}

// IsDelegate reports whether this entry authorizes another key page to
// sign on this page's behalf.
func (e KeyEntry) IsDelegate() bool {
	return e.Kind == KeyEntryKindDelegate
}
