package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "AG-TOKN-4010")
	Reason  string // Machine-readable rejection reason sent to clients
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code, client
// reason, and message. Reason may be empty for errors that are never
// surfaced to clients.
func NewDomainError(code, reason, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Reason:  reason,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Reason:  e.Reason,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Reason:  e.Reason,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// RejectionReason extracts the client-facing rejection reason from an
// error. Returns empty string for non-domain errors and for errors
// without a client reason.
func RejectionReason(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrAPIKeyMissing indicates neither an API key nor a token was provided.
	ErrAPIKeyMissing = NewDomainError("AG-AUTH-4010", "missing_token", "api key or access token required")

	// ErrAPIKeyInvalid indicates the API key is not in the configured key set.
	ErrAPIKeyInvalid = NewDomainError("AG-AUTH-4011", "invalid_api_key", "invalid api key")

	// ErrRateLimited indicates the API key exceeded its request rate.
	ErrRateLimited = NewDomainError("AG-AUTH-4290", "rate_limited", "too many requests")
)

// ============================================================================
// Token Errors (TOKN)
// ============================================================================

var (
	// ErrTokenInvalid indicates the access token is not in the store.
	ErrTokenInvalid = NewDomainError("AG-TOKN-4010", "invalid_token", "invalid access token")

	// ErrTokenMalformed indicates the access token format is invalid.
	ErrTokenMalformed = NewDomainError("AG-TOKN-4000", "invalid_token", "malformed access token")

	// ErrTokenMismatch indicates the token does not match the session binding.
	ErrTokenMismatch = NewDomainError("AG-TOKN-4012", "invalid_token", "token not bound to this connection")

	// ErrTokenBound indicates the token is already bound to a different
	// live connection. A token belongs to exactly one session.
	ErrTokenBound = NewDomainError("AG-TOKN-4013", "invalid_token", "token bound to another connection")
)

// ============================================================================
// Relay Errors (RELY)
// ============================================================================

var (
	// ErrQuestionMissing indicates the request carried no question payload.
	ErrQuestionMissing = NewDomainError("AG-RELY-4000", "missing_question", "question is required")

	// ErrQueueUnavailable indicates the publish hand-off to the queue failed.
	ErrQueueUnavailable = NewDomainError("AG-RELY-5030", "queue_unavailable", "queue unavailable")

	// ErrConnectionGone indicates the target connection is no longer registered.
	// Expected on the response path; never surfaced to clients.
	ErrConnectionGone = NewDomainError("AG-RELY-4040", "", "connection no longer registered")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an internal error.
	ErrInternalServer = NewDomainError("AG-SYS-5000", "internal_error", "internal server error")

	// ErrStorageError indicates a token store failure.
	ErrStorageError = NewDomainError("AG-SYS-5001", "internal_error", "storage error")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("AG-ARG-1001", "", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("AG-ARG-1002", "", "missing required argument")
)
