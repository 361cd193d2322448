package memory

import (
	"context"
	"sort"
	"sync"

	"feedo/internal/domain"
	"feedo/internal/storage"
)

// DeploymentStore is an in-memory implementation of storage.DeploymentStore.
type DeploymentStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DeploymentRecord // keyed by deployment_id
}

// NewDeploymentStore creates a new in-memory deployment store.
func NewDeploymentStore() *DeploymentStore {
	return &DeploymentStore{
		data: make(map[string]*domain.DeploymentRecord),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if deployment_id exists.
func (s *DeploymentStore) Insert(_ context.Context, d *domain.DeploymentRecord) error {
	if d == nil || d.DeploymentID == "" || d.CommentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.DeploymentID]; exists {
		return storage.ErrDuplicateKey
	}

	recordCopy := *d
	s.data[d.DeploymentID] = &recordCopy
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *DeploymentStore) GetByID(_ context.Context, deploymentID string) (*domain.DeploymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.data[deploymentID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recordCopy := *d
	return &recordCopy, nil
}

// GetByUsername retrieves up to limit most recent records for a creator.
func (s *DeploymentStore) GetByUsername(_ context.Context, username string, limit int) ([]*domain.DeploymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DeploymentRecord
	for _, d := range s.data {
		if d.Username == username {
			recordCopy := *d
			result = append(result, &recordCopy)
		}
	}

	// Sort by deployed_at DESC
	sort.Slice(result, func(i, j int) bool {
		if result[i].DeployedAt != result[j].DeployedAt {
			return result[i].DeployedAt > result[j].DeployedAt
		}
		return result[i].DeploymentID < result[j].DeploymentID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Stats summarizes the deployment history.
func (s *DeploymentStore) Stats(_ context.Context) (*domain.DeploymentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.DeploymentStats{}
	creators := make(map[string]struct{})
	for _, d := range s.data {
		stats.TotalDeployments++
		switch d.Status {
		case domain.DeploymentSuccess:
			stats.SuccessfulDeployments++
		case domain.DeploymentFailed:
			stats.FailedDeployments++
		}
		creators[d.Username] = struct{}{}
	}
	stats.TotalCreators = int64(len(creators))
	return stats, nil
}

// Verify interface compliance at compile time.
var _ storage.DeploymentStore = (*DeploymentStore)(nil)
