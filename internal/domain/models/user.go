// SPDX-License-Identifier: AGPL-3.0-or-later
package models

import "time"

// User is a registered ledger user. Only users with both gating flags
// set are eligible for discovery.
type User struct {
	UID                string
	Email              string
	DisplayName        string
	DefaultIdentity    string // canonical URL, may be empty
	OnboardingComplete bool
	KeyVaultSetup      bool
	Identities         []Identity
}

// Eligible reports whether this user should be processed by a cycle.
func (u User) Eligible() bool {
	return u.OnboardingComplete && u.KeyVaultSetup
}

// Identity is one user-controlled on-chain identity (ADI).
type Identity struct {
	IdentityURL   string // canonical URL
	KeyBooks      []KeyBook
	Accounts      []AccountStub
	CreditBalance int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AccountStub is a minimal reference to a sub-account of an identity.
type AccountStub struct {
	URL  string // canonical URL
	Type string
}
