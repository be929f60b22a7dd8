package token

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
)

// DefaultLength is the default token length in bytes.
const DefaultLength = 32

// GenerateHex generates a cryptographically secure random token,
// hex-encoded. With DefaultLength this yields 64 hex characters.
func GenerateHex() (string, error) {
	return GenerateHexWithLength(DefaultLength)
}

// GenerateHexWithLength generates a hex token with the specified byte length.
func GenerateHexWithLength(length int) (string, error) {
	bytes, err := GenerateBytes(length)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// Generate generates a Base64 RawURL encoded random token.
func Generate() (string, error) {
	return GenerateWithLength(DefaultLength)
}

// GenerateWithLength generates a Base64 RawURL token with the specified byte length.
func GenerateWithLength(length int) (string, error) {
	bytes, err := GenerateBytes(length)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// GenerateBytes generates random bytes.
func GenerateBytes(length int) ([]byte, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return nil, err
	}
	return bytes, nil
}
