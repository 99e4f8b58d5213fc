package storefront

import (
	"context"
	"sync"
)

// Storage keys for the durable per-device session state.
const (
	keyCartID = "cart_id"
	keyPhone  = "cart_phone"
)

// SessionStore is the persistence port for the per-device cart identity.
// Implementations map onto whatever durable key-value storage the host
// environment offers (browser local storage, a state file, ...).
type SessionStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// MemoryStore is a SessionStore backed by a map. It is safe for
// concurrent use.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

// IdentityProvider supplies the contact phone the first time a cart is
// needed. Returning provided=false means the user declined; the
// triggering operation aborts with ErrIdentityRequired.
type IdentityProvider interface {
	RequestPhone(ctx context.Context) (phone string, provided bool)
}

// IdentityFunc adapts a function to the IdentityProvider interface.
type IdentityFunc func(ctx context.Context) (string, bool)

func (f IdentityFunc) RequestPhone(ctx context.Context) (string, bool) {
	return f(ctx)
}
