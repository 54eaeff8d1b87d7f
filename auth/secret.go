package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// secretPrefix makes the challenge recognizable in wallet signing prompts.
const secretPrefix = "AMBRodeo authorization secret: "

// A SecretStore issues and holds per-address challenge secrets. A secret
// stays valid until replaced by a new Issue for the same address.
type SecretStore interface {
	Issue(ctx context.Context, address string) (string, error)
	Get(ctx context.Context, address string) (string, bool, error)
}

// NewSecret returns a fresh challenge secret: the signing prompt prefix
// followed by 256 bits of entropy in lowercase hex.
func NewSecret() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("read entropy: %w", err)
	}
	sum := sha256.Sum256(buf[:])
	return secretPrefix + hex.EncodeToString(sum[:]), nil
}

// A MemoryStore keeps secrets in process memory. Secrets live for the
// process lifetime and are invisible to other instances; multi-instance
// deployments should use the Redis-backed store instead.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]issuedSecret
}

type issuedSecret struct {
	secret   string
	issuedAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		secrets: make(map[string]issuedSecret),
	}
}

// Issue generates a fresh secret for the address, overwriting any prior one.
func (s *MemoryStore) Issue(_ context.Context, address string) (string, error) {
	secret, err := NewSecret()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.secrets[strings.ToLower(address)] = issuedSecret{
		secret:   secret,
		issuedAt: time.Now(),
	}
	s.mu.Unlock()
	return secret, nil
}

// Get returns the secret currently associated with the address.
func (s *MemoryStore) Get(_ context.Context, address string) (string, bool, error) {
	s.mu.RLock()
	iss, ok := s.secrets[strings.ToLower(address)]
	s.mu.RUnlock()
	return iss.secret, ok, nil
}
