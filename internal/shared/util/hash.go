package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashUserKey returns a filesystem-safe identifier for a user ID.
func HashUserKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashParts returns a stable hex digest of the ordered parts.
// Each part is length-prefixed so ("ab","c") and ("a","bc") differ.
func HashParts(parts ...string) string {
	h := sha256.New()
	var prefix [8]byte
	for _, p := range parts {
		n := uint64(len(p))
		for i := 0; i < 8; i++ {
			prefix[i] = byte(n >> (8 * (7 - i)))
		}
		h.Write(prefix[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
