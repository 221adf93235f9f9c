package util

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

const fingerprintLen = 8

// Fingerprint returns a short, non-reversible identifier for a bearer token
// that is safe to write to logs and the lifecycle journal. The empty token
// has the empty fingerprint.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:fingerprintLen])
}
