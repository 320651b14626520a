// Package checksum fingerprints note content for the run journal.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of a note's content. The
// journal stores it per applied entry so a later audit can tell whether a
// note changed since the run that touched it.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
