package service

import (
	"errors"
	"testing"

	"github.com/askgate/askgate-go/internal/core/domain"
)

func TestStaticKeySet_Authorize(t *testing.T) {
	keys := NewStaticKeySet([]string{"example_valid_key", "second_key"})

	t.Run("valid key", func(t *testing.T) {
		if err := keys.Authorize("example_valid_key"); err != nil {
			t.Fatalf("Authorize() error = %v, want nil", err)
		}
		if err := keys.Authorize("second_key"); err != nil {
			t.Fatalf("Authorize() error = %v, want nil", err)
		}
	})

	t.Run("invalid key", func(t *testing.T) {
		err := keys.Authorize("bogus")
		if !errors.Is(err, domain.ErrAPIKeyInvalid) {
			t.Fatalf("Authorize() error = %v, want ErrAPIKeyInvalid", err)
		}
	})

	t.Run("empty key", func(t *testing.T) {
		err := keys.Authorize("")
		if !errors.Is(err, domain.ErrAPIKeyInvalid) {
			t.Fatalf("Authorize() error = %v, want ErrAPIKeyInvalid", err)
		}
	})

	t.Run("prefix is not a match", func(t *testing.T) {
		err := keys.Authorize("example_valid")
		if !errors.Is(err, domain.ErrAPIKeyInvalid) {
			t.Fatalf("Authorize() error = %v, want ErrAPIKeyInvalid", err)
		}
	})
}

func TestStaticKeySet_Reload(t *testing.T) {
	keys := NewStaticKeySet([]string{"old_key"})

	keys.Reload([]string{"new_key"})

	if err := keys.Authorize("new_key"); err != nil {
		t.Fatalf("Authorize(new_key) after reload error = %v, want nil", err)
	}
	if err := keys.Authorize("old_key"); !errors.Is(err, domain.ErrAPIKeyInvalid) {
		t.Fatalf("Authorize(old_key) after reload error = %v, want ErrAPIKeyInvalid", err)
	}
	if got := keys.Size(); got != 1 {
		t.Fatalf("Size() = %d, want 1", got)
	}
}

func TestVerifyArgon2Hash_Malformed(t *testing.T) {
	cases := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"wrong scheme", "$bcrypt$whatever"},
		{"missing fields", "$argon2id$v=19$m=16384"},
		{"bad params", "$argon2id$v=19$m=x,t=y,p=z$c2FsdA$aGFzaA"},
		{"bad base64", "$argon2id$v=19$m=16384,t=2,p=2$!!!!$aGFzaA"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if verifyArgon2Hash("secret", tc.hash) {
				t.Fatal("verifyArgon2Hash() = true, want false")
			}
		})
	}
}

func TestAuthService_ValidateAPIKey(t *testing.T) {
	t.Run("no rate limit", func(t *testing.T) {
		auth := NewAuthService(NewStaticKeySet([]string{"k"}), nil)
		for i := 0; i < 50; i++ {
			if err := auth.ValidateAPIKey("k"); err != nil {
				t.Fatalf("ValidateAPIKey() iteration %d error = %v", i, err)
			}
		}
	})

	t.Run("rejection reason", func(t *testing.T) {
		auth := NewAuthService(NewStaticKeySet([]string{"k"}), nil)
		err := auth.ValidateAPIKey("wrong")
		if got := domain.RejectionReason(err); got != "invalid_api_key" {
			t.Fatalf("RejectionReason() = %q, want %q", got, "invalid_api_key")
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		auth := NewAuthService(NewStaticKeySet([]string{"k"}), &AuthServiceConfig{RateLimit: 1})

		// The bucket starts with one token; the second immediate
		// request must be limited.
		if err := auth.ValidateAPIKey("k"); err != nil {
			t.Fatalf("first ValidateAPIKey() error = %v", err)
		}
		var limited bool
		for i := 0; i < 5; i++ {
			if errors.Is(auth.ValidateAPIKey("k"), domain.ErrRateLimited) {
				limited = true
				break
			}
		}
		if !limited {
			t.Fatal("expected ErrRateLimited after exhausting the bucket")
		}
	})

	t.Run("invalid key is not rate limited", func(t *testing.T) {
		auth := NewAuthService(NewStaticKeySet([]string{"k"}), &AuthServiceConfig{RateLimit: 1})
		for i := 0; i < 5; i++ {
			if err := auth.ValidateAPIKey("wrong"); !errors.Is(err, domain.ErrAPIKeyInvalid) {
				t.Fatalf("ValidateAPIKey() error = %v, want ErrAPIKeyInvalid", err)
			}
		}
	})
}
