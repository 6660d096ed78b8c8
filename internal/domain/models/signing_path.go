// SPDX-License-Identifier: AGPL-3.0-or-later
package models

import "strings"

// SigningPath is an ordered, non-empty, cycle-free sequence of key-page
// URLs by which a user's identity can ultimately authorize a
// transaction through delegation. A single-hop path means the user owns
// that page directly; multi-hop paths encode delegation chains where
// hop[i] delegates to hop[i+1].
type SigningPath struct {
	Hops []string // canonical URLs
}

// FinalSigner is the last hop: the key page whose signature, once
// present, ultimately satisfies this path.
func (p SigningPath) FinalSigner() string {
	if len(p.Hops) == 0 {
		return ""
	}
	return p.Hops[len(p.Hops)-1]
}

// Direct reports whether this is a single-hop (non-delegated) path.
func (p SigningPath) Direct() bool {
	return len(p.Hops) == 1
}

// Render produces the human-readable "hop0 -> hop1 -> ..." form.
func (p SigningPath) Render() string {
	return strings.Join(p.Hops, " -> ")
}

// Key returns a value suitable for deduplicating paths by hop sequence:
// paths sharing the same hop sequence are the same path.
func (p SigningPath) Key() string {
	return strings.Join(p.Hops, "\x00")
}
