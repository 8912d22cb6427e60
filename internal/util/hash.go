package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent returns a hex-encoded SHA-256 digest of the given text.
// Used as the per-course deduplication key for uploaded documents.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
