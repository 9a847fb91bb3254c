package engine

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
)

// Bucket maps a (userID, experimentID) pair onto a stable integer in
// [0, 100). The same pair always yields the same bucket across calls and
// process restarts, which is what keeps a user's variant consistent.
// MD5 is used for content stability, not security.
func Bucket(userID, experimentID string) int {
	sum := md5.Sum([]byte(userID + ":" + experimentID))
	hexDigest := hex.EncodeToString(sum[:])

	// First 8 hex chars always parse; ParseUint cannot fail here.
	n, _ := strconv.ParseUint(hexDigest[:8], 16, 64)

	return int(n % 100)
}
