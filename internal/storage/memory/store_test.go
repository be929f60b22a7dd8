package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/askgate/askgate-go/internal/core/domain"
)

func TestTokenStore_CreateGet(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	tok := &domain.AccessToken{Value: strings.Repeat("a", 64), CreatedAt: 42}
	if err := store.Create(ctx, tok); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if tok.ID != 1 {
		t.Fatalf("Create() assigned ID %d, want 1", tok.ID)
	}

	got, err := store.Get(ctx, tok.Value)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != 1 || got.CreatedAt != 42 {
		t.Fatalf("Get() = %+v", got)
	}

	if _, err := store.Get(ctx, strings.Repeat("b", 64)); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("Get(unknown) error = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenStore_DeleteIdempotent(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	tok := &domain.AccessToken{Value: strings.Repeat("c", 64)}
	if err := store.Create(ctx, tok); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.Delete(ctx, tok.Value); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, tok.Value); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if store.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", store.Count())
	}
}

func TestTokenStore_ConcurrentCreateUniqueIDs(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	const n = 64
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok := &domain.AccessToken{
				Value: strings.Repeat("e", 62) + string(rune('a'+i%26)) + string(rune('a'+i/26)),
			}
			if err := store.Create(ctx, tok); err != nil {
				t.Errorf("Create() error = %v", err)
				return
			}
			ids <- tok.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("identity %d assigned twice", id)
		}
		seen[id] = true
	}
}
