package domain

import (
	"encoding/hex"
	"strings"
)

// Token constants.
const (
	// TokenBytesLength is the number of random bytes for token generation.
	TokenBytesLength = 32

	// TokenValueLength is the hex-encoded length (32 bytes -> 64 chars).
	TokenValueLength = TokenBytesLength * 2
)

// AccessToken is an opaque random credential bound to one connection,
// authorizing queue-mediated requests. The value is returned to the
// client once at issuance and revoked when the connection closes.
type AccessToken struct {
	// Value is the hex-encoded random credential (64 characters).
	Value string `json:"value"`

	// ID is the store-assigned identity.
	ID int64 `json:"id"`

	// CreatedAt is the issuance timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at"`
}

// ValidateTokenFormat checks if a string has valid access token format:
// exactly 64 lowercase hex characters.
func ValidateTokenFormat(value string) bool {
	if len(value) != TokenValueLength {
		return false
	}
	if value != strings.ToLower(value) {
		return false
	}
	_, err := hex.DecodeString(value)
	return err == nil
}

// MaskToken masks a token value for safe logging.
// Example: a3f9...c21b
func MaskToken(value string) string {
	if len(value) < 12 {
		return "***REDACTED***"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
