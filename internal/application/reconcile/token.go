// SPDX-License-Identifier: AGPL-3.0-or-later
package reconcile

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// cycleToken produces the opaque "base36(now_ms)_rand8_md5(uid)[0..8]"
// string a cycle's summary is stamped with, letting a downstream
// consumer correlate a summary snapshot to the producing cycle. It is
// informational only; reconciliation never treats it as a lock.
func cycleToken(uid string, now time.Time) string {
	nowPart := strconv.FormatInt(now.UnixMilli(), 36)

	rand8 := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	sum := md5.Sum([]byte(uid))
	uidPart := hex.EncodeToString(sum[:])[:8]

	return nowPart + "_" + rand8 + "_" + uidPart
}
