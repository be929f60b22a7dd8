package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ConnIDPrefix is the prefix for connection identifiers.
const ConnIDPrefix = "agcn-"

// Session represents the broker-side state of one live connection.
//
// A session exists exactly as long as the underlying connection: it is
// created on connect and destroyed on disconnect, graceful or abrupt.
// At most one access token is bound at a time; re-issuance reuses the
// bound token rather than creating a duplicate.
type Session struct {
	// ConnID is the connection identity, stable for the connection's
	// lifetime and never reused after disconnect.
	// Format: agcn-{ulid_lowercase}, 31 characters total.
	ConnID string `json:"conn_id"`

	// AccessToken is the bound token value (empty until issued).
	AccessToken string `json:"access_token"`

	// TokenID is the store-assigned identity of the bound token.
	TokenID int64 `json:"token_id"`

	// CreatedAt is the connect timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at"`
}

// NewSession creates an empty Session for the given connection.
func NewSession(connID string) *Session {
	return &Session{
		ConnID:    connID,
		CreatedAt: time.Now().UnixMilli(),
	}
}

// HasToken reports whether a token is bound to this session.
func (s *Session) HasToken() bool {
	return s.AccessToken != ""
}

// Clone creates a copy of the session.
func (s *Session) Clone() *Session {
	clone := *s
	return &clone
}

// CreatedAtTime returns CreatedAt as time.Time.
func (s *Session) CreatedAtTime() time.Time {
	return time.UnixMilli(s.CreatedAt)
}

// GenerateConnID generates a new connection identifier using ULID.
// Format: agcn-{ulid_lowercase}, 31 characters total.
func GenerateConnID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return ConnIDPrefix + strings.ToLower(id.String()), nil
}

// IsValidConnID checks if a string is a valid connection ID format.
func IsValidConnID(id string) bool {
	if !strings.HasPrefix(id, ConnIDPrefix) {
		return false
	}

	// agcn- (5) + ULID (26) = 31 characters
	if len(id) != 31 {
		return false
	}

	// ParseStrict rejects characters outside the Crockford base32
	// alphabet; Parse does not.
	ulidPart := strings.ToUpper(id[len(ConnIDPrefix):])
	_, err := ulid.ParseStrict(ulidPart)
	return err == nil
}
