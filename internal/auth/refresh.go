package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// RefreshTokenBytes is the entropy of a refresh token. HashRefreshToken
// uses an unsalted digest, which is only safe while this stays at 32 bytes
// or more.
const RefreshTokenBytes = 32

// NewRefreshToken returns a fresh opaque refresh token: 32 random bytes,
// hex encoded. The caller gets the raw value exactly once; only its digest
// is ever stored.
func NewRefreshToken() (string, error) {
	buf := make([]byte, RefreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: reading random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashRefreshToken is the one-way digest stored in users.refresh_token_hash.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
