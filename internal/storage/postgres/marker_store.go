package postgres

import (
	"context"
	"fmt"

	"feedo/internal/domain"
	"feedo/internal/storage"
)

// MarkerStore implements storage.ProcessedMarkerStore using PostgreSQL.
type MarkerStore struct {
	pool *Pool
}

// NewMarkerStore creates a new MarkerStore.
func NewMarkerStore(pool *Pool) *MarkerStore {
	return &MarkerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ProcessedMarkerStore = (*MarkerStore)(nil)

// IsProcessed reports whether a marker exists for the comment ID.
func (s *MarkerStore) IsProcessed(ctx context.Context, commentID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM processed_markers WHERE comment_id = $1)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, commentID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check marker: %w", err)
	}
	return exists, nil
}

// MarkProcessed writes the marker for a comment. Returns ErrDuplicateKey
// if the comment is already marked.
func (s *MarkerStore) MarkProcessed(ctx context.Context, m *domain.ProcessedMarker) error {
	if m == nil || m.CommentID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO processed_markers (comment_id, outcome, processed_at)
		VALUES ($1, $2, $3)
	`

	_, err := s.pool.Exec(ctx, query, m.CommentID, string(m.Outcome), m.ProcessedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert marker: %w", err)
	}
	return nil
}
