// SPDX-License-Identifier: AGPL-3.0-or-later
package models

import "errors"

var (
	ErrIdentityNotFound  = errors.New("identity not found")
	ErrKeyPageNotFound   = errors.New("key page not found")
	ErrPendingTxNotFound = errors.New("pending transaction not found")
	ErrLedgerUnavailable = errors.New("ledger unavailable for this cycle")
	ErrTransientLedger   = errors.New("transient ledger error")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrRPCProtocol       = errors.New("ledger RPC protocol error")
)
