package gateway

import (
	"crypto/rand"
	"encoding/hex"
)

// newID returns a random hex string suitable as a row identifier.
func newID() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "id-unknown"
	}
	return hex.EncodeToString(b[:])
}
