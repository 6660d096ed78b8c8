// SPDX-License-Identifier: AGPL-3.0-or-later
package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorSentinels_WrapAndUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("rpc call failed: %w", ErrTransientLedger)
	assert.True(t, errors.Is(wrapped, ErrTransientLedger))
	assert.False(t, errors.Is(wrapped, ErrLedgerUnavailable))
}

func TestErrorSentinels_Distinct(t *testing.T) {
	sentinels := []error{
		ErrIdentityNotFound,
		ErrKeyPageNotFound,
		ErrPendingTxNotFound,
		ErrLedgerUnavailable,
		ErrTransientLedger,
		ErrInvalidConfig,
		ErrRPCProtocol,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v should not be %v", a, b)
		}
	}
}
