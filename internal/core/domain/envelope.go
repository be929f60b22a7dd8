package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// CorrelationIDPrefix is the prefix for request correlation identifiers.
const CorrelationIDPrefix = "agrq-"

// RequestEnvelope is the unit published to the input queue. It carries
// everything a worker needs to produce a routable answer: the question
// payload plus the correlation fields that tie the eventual response
// back to the issuing connection.
//
// An envelope is transient: it is never persisted by the broker after
// a successful publish hand-off.
type RequestEnvelope struct {
	ConnID        string `json:"connection_id"`
	AccessToken   string `json:"access_token"`
	Question      string `json:"question"`
	CorrelationID string `json:"correlation_id"`
}

// ResponseEnvelope is the unit consumed from the output queue. Workers
// echo the correlation fields of the request envelope and attach the
// answer payload.
type ResponseEnvelope struct {
	ConnID        string `json:"connection_id"`
	AccessToken   string `json:"access_token"`
	CorrelationID string `json:"correlation_id"`
	Question      string `json:"question,omitempty"`
	Answer        string `json:"answer"`
}

// NewRequestEnvelope builds an envelope with a fresh correlation ID.
func NewRequestEnvelope(connID, accessToken, question string) (*RequestEnvelope, error) {
	correlationID, err := GenerateCorrelationID()
	if err != nil {
		return nil, err
	}
	return &RequestEnvelope{
		ConnID:        connID,
		AccessToken:   accessToken,
		Question:      question,
		CorrelationID: correlationID,
	}, nil
}

// GenerateCorrelationID generates a unique per-request identifier.
// Format: agrq-{ulid_lowercase}, 31 characters total. ULIDs are
// monotonic within a millisecond, which keeps identifiers unique even
// for concurrent requests multiplexed on one connection.
func GenerateCorrelationID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return CorrelationIDPrefix + strings.ToLower(id.String()), nil
}

// Validate checks the envelope carries every correlation field the
// response path depends on.
func (e *ResponseEnvelope) Validate() error {
	var missing []string
	if e.ConnID == "" {
		missing = append(missing, "connection_id")
	}
	if e.CorrelationID == "" {
		missing = append(missing, "correlation_id")
	}
	if len(missing) > 0 {
		return ErrMissingArgument.WithDetails(strings.Join(missing, ", "))
	}
	return nil
}
