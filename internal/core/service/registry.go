package service

import (
	"context"

	"github.com/askgate/askgate-go/internal/core/domain"
	"github.com/askgate/askgate-go/pkg/cmap"
)

// Pusher delivers an outbound message to a single live connection.
// Implementations must be safe for concurrent use and must not block
// indefinitely: a slow or dead peer is the pusher's problem, not the
// relay's.
type Pusher interface {
	Push(msg any) error
}

// connEntry pairs an immutable session snapshot with the connection's
// outbound pusher. Bind replaces the whole entry rather than mutating
// the session in place, so Resolve readers never observe a partially
// updated session.
type connEntry struct {
	session *domain.Session
	pusher  Pusher
}

// Registry tracks live connections by connection ID. It is the single
// source of truth for which connections exist and which access token,
// if any, each one holds. The token index maps each bound token value
// to its owning connection, so a token can never be bound to two live
// connections at once.
type Registry struct {
	conns  *cmap.Map[string, *connEntry]
	tokens *cmap.Map[string, string]
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  cmap.New[string, *connEntry](),
		tokens: cmap.New[string, string](),
	}
}

// Connect registers a new connection and returns its generated
// connection ID.
func (r *Registry) Connect(p Pusher) (string, error) {
	connID, err := domain.GenerateConnID()
	if err != nil {
		return "", domain.ErrInternalServer.WithCause(err)
	}

	entry := &connEntry{
		session: domain.NewSession(connID),
		pusher:  p,
	}
	r.conns.Set(connID, entry)

	return connID, nil
}

// Disconnect removes a connection and returns its final session
// snapshot. The boolean reports whether the connection was present.
//
// Concurrent Disconnect calls for the same connection observe the
// session at most once, so token revocation driven by the returned
// session runs exactly once.
func (r *Registry) Disconnect(connID string) (*domain.Session, bool) {
	entry, ok := r.conns.Pop(connID)
	if !ok {
		return nil, false
	}
	if entry.session.HasToken() {
		r.releaseToken(entry.session.AccessToken, connID)
	}
	return entry.session, true
}

// Bind associates an access token with a live connection. Binding the
// same token again is idempotent; rebinding a different token is an
// error, and so is binding a token another live connection already
// holds. Returns domain.ErrConnectionGone if the connection is no
// longer registered.
func (r *Registry) Bind(connID string, t *domain.AccessToken) error {
	claimed, err := r.claimToken(t.Value, connID)
	if err != nil {
		return err
	}

	var bindErr error
	ok := r.conns.UpdateIfPresent(connID, func(existing *connEntry) *connEntry {
		if existing.session.HasToken() {
			if existing.session.AccessToken != t.Value {
				bindErr = domain.ErrTokenMismatch
			}
			return existing
		}
		next := existing.session.Clone()
		next.AccessToken = t.Value
		next.TokenID = t.ID
		return &connEntry{session: next, pusher: existing.pusher}
	})
	if !ok {
		bindErr = domain.ErrConnectionGone
	}
	if bindErr != nil && claimed {
		r.releaseToken(t.Value, connID)
	}
	return bindErr
}

// Rebind replaces the connection's current token binding with a fresh
// one. Used when the bound token was revoked out from under the
// session and Bind's rebind guard must not apply. The stale value is
// released from the token index.
func (r *Registry) Rebind(connID string, t *domain.AccessToken) error {
	claimed, err := r.claimToken(t.Value, connID)
	if err != nil {
		return err
	}

	var stale string
	ok := r.conns.UpdateIfPresent(connID, func(existing *connEntry) *connEntry {
		stale = existing.session.AccessToken
		next := existing.session.Clone()
		next.AccessToken = t.Value
		next.TokenID = t.ID
		return &connEntry{session: next, pusher: existing.pusher}
	})
	if !ok {
		if claimed {
			r.releaseToken(t.Value, connID)
		}
		return domain.ErrConnectionGone
	}
	if stale != "" && stale != t.Value {
		r.releaseToken(stale, connID)
	}
	return nil
}

// claimToken records connID as the token's owner. Reports whether
// this call made the claim; a token owned by a different connection
// is rejected with domain.ErrTokenBound.
func (r *Registry) claimToken(value, connID string) (bool, error) {
	claimed := false
	var owner string
	r.tokens.Upsert(value, func(existing string, exists bool) string {
		if exists {
			owner = existing
			return existing
		}
		claimed = true
		owner = connID
		return connID
	})
	if owner != connID {
		return false, domain.ErrTokenBound
	}
	return claimed, nil
}

// releaseToken removes the index entry, but only if connID still owns
// it. A concurrent rebind may have handed the value to someone else.
func (r *Registry) releaseToken(value, connID string) {
	r.tokens.DeleteIf(value, func(owner string) bool {
		return owner == connID
	})
}

// Resolve returns the session snapshot and pusher for a live
// connection. Returns false if the connection is gone.
func (r *Registry) Resolve(connID string) (*domain.Session, Pusher, bool) {
	entry, ok := r.conns.Get(connID)
	if !ok {
		return nil, nil, false
	}
	return entry.session, entry.pusher, true
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	return r.conns.Count()
}

// RevokeOnDisconnect removes the connection and, if it held a token,
// revokes it through the token service. Safe to call from multiple
// cleanup paths.
func (r *Registry) RevokeOnDisconnect(ctx context.Context, connID string, tokens *TokenService) (*domain.Session, error) {
	sess, ok := r.Disconnect(connID)
	if !ok {
		return nil, nil
	}
	if sess.HasToken() {
		if err := tokens.Revoke(ctx, sess.AccessToken); err != nil {
			return sess, err
		}
	}
	return sess, nil
}
