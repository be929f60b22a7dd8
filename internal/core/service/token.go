package service

import (
	"context"
	"errors"
	"time"

	"github.com/askgate/askgate-go/internal/core/domain"
	"github.com/askgate/askgate-go/pkg/token"
)

// TokenRepository defines the storage interface for access tokens.
type TokenRepository interface {
	// Create persists a new token record and assigns its ID.
	Create(ctx context.Context, t *domain.AccessToken) error

	// Get retrieves a token record by value.
	// Returns domain.ErrTokenInvalid if the value is not stored.
	Get(ctx context.Context, value string) (*domain.AccessToken, error)

	// Delete removes a token by value. Deleting a missing value is
	// not an error.
	Delete(ctx context.Context, value string) error
}

// TokenService handles the access token lifecycle: issuance,
// validation, and revocation.
type TokenService struct {
	repo TokenRepository
}

// NewTokenService creates a new TokenService.
func NewTokenService(repo TokenRepository) *TokenService {
	return &TokenService{repo: repo}
}

// Issue generates a fresh access token and persists it.
//
// A persistence failure is fatal to the request: the caller must not
// proceed to publish with an unstored token.
func (s *TokenService) Issue(ctx context.Context) (*domain.AccessToken, error) {
	value, err := token.GenerateHex()
	if err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}

	t := &domain.AccessToken{
		Value:     value,
		CreatedAt: time.Now().UnixMilli(),
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}

	return t, nil
}

// Validate looks up a token by value. Malformed values are rejected
// without touching the store.
func (s *TokenService) Validate(ctx context.Context, value string) (*domain.AccessToken, error) {
	if !domain.ValidateTokenFormat(value) {
		return nil, domain.ErrTokenMalformed
	}

	t, err := s.repo.Get(ctx, value)
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, domain.ErrStorageError.WithCause(err)
	}

	return t, nil
}

// Exists reports whether a token value is stored.
func (s *TokenService) Exists(ctx context.Context, value string) (bool, error) {
	_, err := s.Validate(ctx, value)
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) || errors.Is(err, domain.ErrTokenMalformed) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Revoke deletes a token by value. Idempotent: revoking a token that
// was already revoked (or never issued) is not an error.
func (s *TokenService) Revoke(ctx context.Context, value string) error {
	if value == "" {
		return nil
	}

	if err := s.repo.Delete(ctx, value); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}

	return nil
}
