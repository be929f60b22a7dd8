package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/askgate/askgate-go/internal/core/domain"
)

// Key layout for token records.
var (
	tokenKeyPrefix = []byte("tok/")
	tokenSeqKey    = []byte("sys/token_seq")
)

// tokenRecord is the stored form of an access token. The value itself
// is the key, so only identity and creation time are persisted.
type tokenRecord struct {
	ID        int64 `json:"id"`
	CreatedAt int64 `json:"created_at"`
}

// TokenStore persists access tokens in a KVEngine. It implements the
// relay service's TokenRepository.
type TokenStore struct {
	engine KVEngine
}

// NewTokenStore creates a token store backed by the given engine.
func NewTokenStore(engine KVEngine) *TokenStore {
	return &TokenStore{engine: engine}
}

func tokenKey(value string) []byte {
	return append(append([]byte{}, tokenKeyPrefix...), value...)
}

// Create persists a new token record and assigns its store identity
// from a monotonic sequence.
func (s *TokenStore) Create(ctx context.Context, t *domain.AccessToken) error {
	seq, err := s.engine.Increment(ctx, tokenSeqKey)
	if err != nil {
		return fmt.Errorf("token sequence: %w", err)
	}
	t.ID = int64(seq)

	body, err := json.Marshal(tokenRecord{ID: t.ID, CreatedAt: t.CreatedAt})
	if err != nil {
		return fmt.Errorf("encode token record: %w", err)
	}

	if err := s.engine.Set(ctx, tokenKey(t.Value), body); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

// Get retrieves a token record by value. Returns
// domain.ErrTokenInvalid if the value is not stored.
func (s *TokenStore) Get(ctx context.Context, value string) (*domain.AccessToken, error) {
	body, err := s.engine.Get(ctx, tokenKey(value))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("load token: %w", err)
	}

	var rec tokenRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decode token record: %w", err)
	}

	return &domain.AccessToken{
		Value:     value,
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// Delete removes a token by value. Idempotent.
func (s *TokenStore) Delete(ctx context.Context, value string) error {
	if err := s.engine.Delete(ctx, tokenKey(value)); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// Count returns the number of stored tokens. Used by diagnostics and
// tests; full prefix scan, not for hot paths.
func (s *TokenStore) Count(ctx context.Context) (int, error) {
	n := 0
	err := s.engine.Scan(ctx, tokenKeyPrefix, func(_, _ []byte) bool {
		n++
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("scan tokens: %w", err)
	}
	return n, nil
}
