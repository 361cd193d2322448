package memory

import (
	"context"
	"sync"

	"feedo/internal/storage"
)

// DeploymentEventStore is an in-memory implementation of
// storage.DeploymentEventStore.
type DeploymentEventStore struct {
	mu     sync.RWMutex
	events []*storage.DeploymentEvent
}

// NewDeploymentEventStore creates a new in-memory event store.
func NewDeploymentEventStore() *DeploymentEventStore {
	return &DeploymentEventStore{}
}

// InsertBulk adds multiple events.
func (s *DeploymentEventStore) InsertBulk(_ context.Context, events []*storage.DeploymentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		eventCopy := *e
		s.events = append(s.events, &eventCopy)
	}
	return nil
}

// Events returns a snapshot of all recorded events.
func (s *DeploymentEventStore) Events() []*storage.DeploymentEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*storage.DeploymentEvent, len(s.events))
	for i, e := range s.events {
		eventCopy := *e
		result[i] = &eventCopy
	}
	return result
}

// Verify interface compliance at compile time.
var _ storage.DeploymentEventStore = (*DeploymentEventStore)(nil)
