package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// tokenBytes of randomness, hex-encoded to 96 characters. 384 bits makes
// collisions unreachable by construction; the unique index on sessions.token
// is a fatal backstop, not a retry trigger.
const tokenBytes = 48

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
