package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// newSessionToken returns a random opaque session token
func newSessionToken() (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(tokenBytes), nil
}

// HashToken creates a SHA-256 hash of the token for storage
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// newRememberToken returns a fresh remember-me token
func newRememberToken() string {
	return uuid.NewString()
}

// IsRememberToken reports whether s has the shape of a remember-me token
func IsRememberToken(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
