package session

import (
	"crypto/rand"
	"encoding/hex"
)

// newToken returns a random URL-safe hex token.
func newToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
