package common

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Sha256Hex hashes the concatenation of parts and returns it as lowercase hex.
func Sha256Hex(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		_, _ = io.WriteString(h, p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
