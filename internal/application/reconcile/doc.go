// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reconcile diffs a discovery cycle's eligible set against a
// user's stored inbox and commits the add/remove/summary batch.
package reconcile
