package memory

import (
	"context"
	"sync"

	"feedo/internal/domain"
	"feedo/internal/storage"
)

// ProfileStore is an in-memory implementation of storage.ProfileStore.
type ProfileStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CreatorProfile // keyed by username
}

// NewProfileStore creates a new in-memory profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		data: make(map[string]*domain.CreatorProfile),
	}
}

// GetByUsername retrieves a cached profile. Returns ErrNotFound if not exists.
func (s *ProfileStore) GetByUsername(_ context.Context, username string) (*domain.CreatorProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[username]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy
	profileCopy := *p
	return &profileCopy, nil
}

// Put stores a profile. Returns ErrDuplicateKey if the username is already cached.
func (s *ProfileStore) Put(_ context.Context, p *domain.CreatorProfile) error {
	if p == nil || p.Username == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.Username]; exists {
		return storage.ErrDuplicateKey
	}

	profileCopy := *p
	s.data[p.Username] = &profileCopy
	return nil
}

// Verify interface compliance at compile time.
var _ storage.ProfileStore = (*ProfileStore)(nil)
