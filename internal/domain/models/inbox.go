// SPDX-License-Identifier: AGPL-3.0-or-later
package models

import "time"

// UrgencyLevel is the UI-facing urgency bucket for a pending action.
type UrgencyLevel string

const (
	UrgencyCritical UrgencyLevel = "critical"
	UrgencyWarning  UrgencyLevel = "warning"
	UrgencyNormal   UrgencyLevel = "normal"
)

// DocStatus is the UI-facing status of a pending action document.
type DocStatus string

const (
	DocStatusPending           DocStatus = "pending"
	DocStatusPartiallySigned   DocStatus = "partially_signed"
	DocStatusAwaitingSignature DocStatus = "awaiting_signatures"
)

// RenderedSignature is the UI-facing projection of a SignatureRecord.
type RenderedSignature struct {
	Signer        string
	PublicKeyHash string
	Vote          Vote
	SignedAt      time.Time
}

// PendingActionDoc is the per-transaction inbox entry, keyed by
// CanonicalHash(tx) under /{users}/{uid}/pendingActions/{hash}.
type PendingActionDoc struct {
	TxHash               string
	TxID                 string
	Principal            string
	Type                 string
	Category             Category
	Status               DocStatus
	UrgencyLevel         UrgencyLevel
	TimeRemaining        time.Duration
	IsExpiring           bool
	ExpiresAt            *time.Time
	Signatures           []RenderedSignature
	EligibleSigningPaths []string // rendered paths
	UserHasSigned        bool
	Network              string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ComputedInboxSummary is the per-user aggregate document written at
// /{users}/{uid}/computedState/pending.
type ComputedInboxSummary struct {
	Total              int
	UrgentCount        int
	InitiatedByUser    int
	RequiringSignature int
	TxHashes           []string // map iteration order of the eligible set; no defined order
	CycleToken         string
	ComputedAt         time.Time
	DurationMs         int64
}
