package authz

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/cemetery/internal/core/domain"
)

// RoleStore caches resolved roles per principal.
type RoleStore interface {
	// Get returns the cached role, or false when absent or expired.
	Get(ctx context.Context, principal domain.Principal) (domain.Role, bool, error)

	// Set caches role for ttl.
	Set(ctx context.Context, principal domain.Principal, role domain.Role, ttl time.Duration) error

	// Delete evicts the principal's role.
	Delete(ctx context.Context, principal domain.Principal) error
}

type memoryEntry struct {
	role      domain.Role
	expiresAt time.Time
}

// MemoryStore implements RoleStore in process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[domain.Principal]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory role store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[domain.Principal]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, principal domain.Principal) (domain.Role, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[principal]
	if !ok || !s.now().Before(e.expiresAt) {
		return "", false, nil
	}
	return e.role, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, principal domain.Principal, role domain.Role, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[principal] = memoryEntry{role: role, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, principal domain.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, principal)
	return nil
}
