package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// secretBytes is 256 bits, matching the HS256 signing keys the booking
// backend expects in JWT_SECRET and JWT_REFRESH_SECRET.
const secretBytes = 32

// GenerateSecret returns n random bytes hex-encoded
func GenerateSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateJWTSecrets generates the access and refresh signing secrets. The
// two secrets are independent so a leaked access secret cannot forge
// refresh tokens.
func GenerateJWTSecrets() (accessSecret, refreshSecret string, err error) {
	accessSecret, err = GenerateSecret(secretBytes)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access secret: %w", err)
	}

	refreshSecret, err = GenerateSecret(secretBytes)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh secret: %w", err)
	}

	return accessSecret, refreshSecret, nil
}
