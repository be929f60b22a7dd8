package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/askgate/askgate-go/internal/core/domain"
	"github.com/askgate/askgate-go/internal/storage/memory"
)

// fakePusher records pushed messages. Shared by registry and relay
// tests.
type fakePusher struct {
	mu   sync.Mutex
	msgs []any
	fail bool
}

func (p *fakePusher) Push(msg any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("peer gone")
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePusher) messages() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]any, len(p.msgs))
	copy(out, p.msgs)
	return out
}

func TestRegistry_ConnectResolve(t *testing.T) {
	reg := NewRegistry()
	pusher := &fakePusher{}

	connID, err := reg.Connect(pusher)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !strings.HasPrefix(connID, domain.ConnIDPrefix) {
		t.Errorf("Connect() id = %q, want %q prefix", connID, domain.ConnIDPrefix)
	}

	sess, p, ok := reg.Resolve(connID)
	if !ok {
		t.Fatal("Resolve() = absent for a live connection")
	}
	if sess.HasToken() {
		t.Error("fresh session already holds a token")
	}
	if p != Pusher(pusher) {
		t.Error("Resolve() returned a different pusher")
	}
	if got := reg.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}

func TestRegistry_Bind(t *testing.T) {
	reg := NewRegistry()
	connID, err := reg.Connect(&fakePusher{})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	tok := &domain.AccessToken{Value: strings.Repeat("ab", 32), ID: 7}

	if err := reg.Bind(connID, tok); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	sess, _, _ := reg.Resolve(connID)
	if sess.AccessToken != tok.Value || sess.TokenID != 7 {
		t.Fatalf("session binding = (%q, %d), want (%q, 7)",
			sess.AccessToken, sess.TokenID, tok.Value)
	}

	t.Run("same token is idempotent", func(t *testing.T) {
		if err := reg.Bind(connID, tok); err != nil {
			t.Fatalf("rebind same token error = %v", err)
		}
	})

	t.Run("different token is rejected", func(t *testing.T) {
		other := &domain.AccessToken{Value: strings.Repeat("cd", 32), ID: 8}
		err := reg.Bind(connID, other)
		if !errors.Is(err, domain.ErrTokenMismatch) {
			t.Fatalf("rebind error = %v, want ErrTokenMismatch", err)
		}
		sess, _, _ := reg.Resolve(connID)
		if sess.AccessToken != tok.Value {
			t.Fatal("rejected rebind still replaced the session token")
		}
	})

	t.Run("gone connection", func(t *testing.T) {
		err := reg.Bind("agcn-nosuchconnection", tok)
		if !errors.Is(err, domain.ErrConnectionGone) {
			t.Fatalf("Bind() error = %v, want ErrConnectionGone", err)
		}
	})
}

func TestRegistry_Disconnect(t *testing.T) {
	reg := NewRegistry()
	connID, err := reg.Connect(&fakePusher{})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	sess, ok := reg.Disconnect(connID)
	if !ok {
		t.Fatal("Disconnect() = absent for a live connection")
	}
	if sess == nil {
		t.Fatal("Disconnect() returned nil session")
	}

	if _, _, ok := reg.Resolve(connID); ok {
		t.Fatal("Resolve() still present after Disconnect()")
	}
	if _, ok := reg.Disconnect(connID); ok {
		t.Fatal("second Disconnect() observed the session again")
	}
}

func TestRegistry_DisconnectExactlyOnceUnderConcurrency(t *testing.T) {
	reg := NewRegistry()

	for i := 0; i < 50; i++ {
		connID, err := reg.Connect(&fakePusher{})
		if err != nil {
			t.Fatalf("Connect() error = %v", err)
		}

		var observed atomic.Int64
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok := reg.Disconnect(connID); ok {
					observed.Add(1)
				}
			}()
		}
		wg.Wait()

		if got := observed.Load(); got != 1 {
			t.Fatalf("iteration %d: %d goroutines observed the session, want 1", i, got)
		}
	}
}

func TestRegistry_RevokeOnDisconnect(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTokenStore()
	tokens := NewTokenService(store)
	reg := NewRegistry()

	connID, err := reg.Connect(&fakePusher{})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	tok, err := tokens.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if err := reg.Bind(connID, tok); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	sess, err := reg.RevokeOnDisconnect(ctx, connID, tokens)
	if err != nil {
		t.Fatalf("RevokeOnDisconnect() error = %v", err)
	}
	if sess == nil || !sess.HasToken() {
		t.Fatal("RevokeOnDisconnect() lost the final session snapshot")
	}

	if ok, _ := tokens.Exists(ctx, tok.Value); ok {
		t.Fatal("token still resolvable after disconnect")
	}
	if store.Count() != 0 {
		t.Fatalf("store has %d tokens, want 0", store.Count())
	}

	// No-op on an already removed connection.
	sess, err = reg.RevokeOnDisconnect(ctx, connID, tokens)
	if err != nil || sess != nil {
		t.Fatalf("second RevokeOnDisconnect() = (%v, %v), want (nil, nil)", sess, err)
	}
}

func TestRegistry_BindTokenHeldByOtherConnection(t *testing.T) {
	reg := NewRegistry()
	connA, err := reg.Connect(&fakePusher{})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	connB, err := reg.Connect(&fakePusher{})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	tok := &domain.AccessToken{Value: strings.Repeat("cd", 32), ID: 9}
	if err := reg.Bind(connA, tok); err != nil {
		t.Fatalf("Bind(connA) error = %v", err)
	}

	if err := reg.Bind(connB, tok); !errors.Is(err, domain.ErrTokenBound) {
		t.Fatalf("Bind(connB) error = %v, want ErrTokenBound", err)
	}
	sess, _, _ := reg.Resolve(connB)
	if sess.HasToken() {
		t.Error("rejected bind still attached the token to connB")
	}

	// The owner's disconnect frees the value again.
	if _, ok := reg.Disconnect(connA); !ok {
		t.Fatal("Disconnect(connA) = absent")
	}
	if err := reg.Bind(connB, tok); err != nil {
		t.Fatalf("Bind(connB) after owner disconnect error = %v", err)
	}
}

func TestRegistry_Rebind(t *testing.T) {
	reg := NewRegistry()
	connID, err := reg.Connect(&fakePusher{})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	stale := &domain.AccessToken{Value: strings.Repeat("ef", 32), ID: 3}
	fresh := &domain.AccessToken{Value: strings.Repeat("01", 32), ID: 4}

	if err := reg.Bind(connID, stale); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if err := reg.Rebind(connID, fresh); err != nil {
		t.Fatalf("Rebind() error = %v", err)
	}

	sess, _, ok := reg.Resolve(connID)
	if !ok {
		t.Fatal("Resolve() = absent after rebind")
	}
	if sess.AccessToken != fresh.Value || sess.TokenID != fresh.ID {
		t.Errorf("session token = (%q, %d), want the fresh binding",
			sess.AccessToken, sess.TokenID)
	}

	// The stale value was released and another connection may claim it.
	other, err := reg.Connect(&fakePusher{})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := reg.Bind(other, stale); err != nil {
		t.Errorf("Bind(stale) after release error = %v", err)
	}

	unclaimed := &domain.AccessToken{Value: strings.Repeat("23", 32), ID: 5}
	if err := reg.Rebind("agcn-00000000000000000000000000", unclaimed); !errors.Is(err, domain.ErrConnectionGone) {
		t.Errorf("Rebind(unknown) error = %v, want ErrConnectionGone", err)
	}
}
