package store

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeHash returns the hex-encoded SHA-256 digest of content. Hashes of
// the canonical sync body are stored per spec and compared on every sync to
// detect drift between the local record and the remote item.
func ComputeHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// HashDiffers reports whether two content hashes disagree. An empty hash
// means "never synced", which always counts as different.
func HashDiffers(a, b string) bool {
	if a == "" || b == "" {
		return true
	}
	return a != b
}
