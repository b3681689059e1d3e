package crypto

import (
	"crypto/sha256"
	"fmt"
)

// GenericHash computes a SHA-256 hex hash, used for remember-me cookie tokens.
func GenericHash(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return fmt.Sprintf("%x", h)
}
