package service

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/time/rate"

	"github.com/askgate/askgate-go/internal/core/domain"
)

// APIKeyAuthorizer decides whether an API key may issue requests.
//
// The gate is deliberately pluggable: the relay engine only sees this
// interface, so the static key set can be replaced without touching it.
type APIKeyAuthorizer interface {
	// Authorize returns nil if the key is accepted.
	Authorize(key string) error
}

// StaticKeySet is an APIKeyAuthorizer backed by a configured list of
// keys. Entries may be plaintext keys or Argon2id hashes in the
// standard $argon2id$v=19$m=...,t=...,p=...$<salt>$<hash> encoding.
// The set is swappable at runtime for file-watch reloads.
type StaticKeySet struct {
	mu     sync.RWMutex
	plain  []string
	hashed []string
}

// NewStaticKeySet creates a key set from the configured entries.
func NewStaticKeySet(keys []string) *StaticKeySet {
	s := &StaticKeySet{}
	s.Reload(keys)
	return s
}

// Reload replaces the key set. Used by the config watcher.
func (s *StaticKeySet) Reload(keys []string) {
	var plain, hashed []string
	for _, k := range keys {
		if k == "" {
			continue
		}
		if strings.HasPrefix(k, "$argon2id$") {
			hashed = append(hashed, k)
		} else {
			plain = append(plain, k)
		}
	}

	s.mu.Lock()
	s.plain = plain
	s.hashed = hashed
	s.mu.Unlock()
}

// Authorize checks the key against the set. Plaintext entries use
// constant-time comparison; every entry is visited so timing does not
// reveal which position matched.
func (s *StaticKeySet) Authorize(key string) error {
	// An empty string presented as a key is an invalid key. The relay
	// reports missing credentials before the gate is ever consulted.
	if key == "" {
		return domain.ErrAPIKeyInvalid
	}

	s.mu.RLock()
	plain := s.plain
	hashed := s.hashed
	s.mu.RUnlock()

	matched := 0
	for _, candidate := range plain {
		if len(candidate) == len(key) {
			matched |= subtle.ConstantTimeCompare([]byte(candidate), []byte(key))
		}
	}

	for _, hash := range hashed {
		if verifyArgon2Hash(key, hash) {
			matched |= 1
		}
	}

	if matched != 1 {
		return domain.ErrAPIKeyInvalid
	}
	return nil
}

// Size returns the number of configured entries.
func (s *StaticKeySet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.plain) + len(s.hashed)
}

// verifyArgon2Hash verifies a secret against an Argon2id hash.
// Hash format: $argon2id$v=19$m=16384,t=2,p=2$<salt>$<hash>
func verifyArgon2Hash(secret, hash string) bool {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		return false
	}

	if parts[1] != "argon2id" {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	// Standard params: memory=16384 KB, time=2, parallelism=2
	computed := argon2.IDKey([]byte(secret), salt, 2, 16384, 2, uint32(len(expected)))

	return subtle.ConstantTimeCompare(computed, expected) == 1
}

// AuthServiceConfig holds configuration for AuthService.
type AuthServiceConfig struct {
	// RateLimit is the per-key request rate in requests/second
	// (0 disables rate limiting).
	RateLimit int
}

// AuthService is the access control gate: API key membership plus
// per-key rate limiting. Validation failures are rejections, never
// fatal to the broker.
type AuthService struct {
	keys      APIKeyAuthorizer
	limiters  *RateLimiterRegistry
	rateLimit int
}

// NewAuthService creates a new AuthService.
func NewAuthService(keys APIKeyAuthorizer, cfg *AuthServiceConfig) *AuthService {
	if cfg == nil {
		cfg = &AuthServiceConfig{}
	}

	return &AuthService{
		keys:      keys,
		limiters:  NewRateLimiterRegistry(),
		rateLimit: cfg.RateLimit,
	}
}

// ValidateAPIKey validates an API key and applies its rate limit.
func (s *AuthService) ValidateAPIKey(key string) error {
	if err := s.keys.Authorize(key); err != nil {
		return err
	}

	if s.rateLimit > 0 {
		limiter := s.limiters.GetOrCreate(key, s.rateLimit)
		if !limiter.Allow() {
			return domain.ErrRateLimited
		}
	}

	return nil
}

// ============================================================================
// RateLimiterRegistry - Rate Limiter Management
// ============================================================================

// RateLimiterRegistry manages rate limiters for each API key.
type RateLimiterRegistry struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiterRegistry creates a new RateLimiterRegistry.
func NewRateLimiterRegistry() *RateLimiterRegistry {
	return &RateLimiterRegistry{
		limiters: make(map[string]*rate.Limiter),
	}
}

// GetOrCreate retrieves an existing rate limiter or creates a new one.
func (r *RateLimiterRegistry) GetOrCreate(key string, rateLimit int) *rate.Limiter {
	r.mu.RLock()
	limiter, exists := r.limiters[key]
	r.mu.RUnlock()

	if exists {
		return limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := r.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Limit(rateLimit), rateLimit)
	r.limiters[key] = limiter

	return limiter
}

// Delete removes a rate limiter for a specific key.
func (r *RateLimiterRegistry) Delete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.limiters, key)
}
