package memory

import (
	"context"
	"sync/atomic"

	"github.com/askgate/askgate-go/internal/core/domain"
	"github.com/askgate/askgate-go/pkg/cmap"
)

// TokenStore is an in-memory token repository. Safe for concurrent
// use; identities come from a process-local sequence.
type TokenStore struct {
	tokens *cmap.Map[string, domain.AccessToken]
	seq    atomic.Int64
}

// NewTokenStore creates an empty in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		tokens: cmap.New[string, domain.AccessToken](),
	}
}

// Create stores a new token and assigns its identity.
func (s *TokenStore) Create(_ context.Context, t *domain.AccessToken) error {
	t.ID = s.seq.Add(1)
	s.tokens.Set(t.Value, *t)
	return nil
}

// Get retrieves a token by value. Returns domain.ErrTokenInvalid if
// the value is not stored.
func (s *TokenStore) Get(_ context.Context, value string) (*domain.AccessToken, error) {
	t, ok := s.tokens.Get(value)
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	out := t
	return &out, nil
}

// Delete removes a token by value. Idempotent.
func (s *TokenStore) Delete(_ context.Context, value string) error {
	s.tokens.Delete(value)
	return nil
}

// Count returns the number of stored tokens.
func (s *TokenStore) Count() int {
	return s.tokens.Count()
}
