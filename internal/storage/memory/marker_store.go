package memory

import (
	"context"
	"sync"

	"feedo/internal/domain"
	"feedo/internal/storage"
)

// MarkerStore is an in-memory implementation of storage.ProcessedMarkerStore.
type MarkerStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ProcessedMarker // keyed by comment_id
}

// NewMarkerStore creates a new in-memory marker store.
func NewMarkerStore() *MarkerStore {
	return &MarkerStore{
		data: make(map[string]*domain.ProcessedMarker),
	}
}

// IsProcessed reports whether a marker exists for the comment ID.
func (s *MarkerStore) IsProcessed(_ context.Context, commentID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.data[commentID]
	return exists, nil
}

// MarkProcessed writes the marker. Returns ErrDuplicateKey if already marked.
func (s *MarkerStore) MarkProcessed(_ context.Context, m *domain.ProcessedMarker) error {
	if m == nil || m.CommentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[m.CommentID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	markerCopy := *m
	s.data[m.CommentID] = &markerCopy
	return nil
}

// Verify interface compliance at compile time.
var _ storage.ProcessedMarkerStore = (*MarkerStore)(nil)
