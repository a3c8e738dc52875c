package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NonceBytes is the amount of randomness in a one-time token.
const NonceBytes = 32

// NewNonce returns NonceBytes of crypto/rand data, hex encoded.
func NewNonce() (string, error) {
	buf := make([]byte, NonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
