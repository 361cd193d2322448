package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedo/internal/domain"
	"feedo/internal/storage"
)

func TestMarkerStore_MarkAndCheck(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMarkerStore(pool)
	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "comment-001")
	require.NoError(t, err)
	assert.False(t, processed)

	err = store.MarkProcessed(ctx, &domain.ProcessedMarker{
		CommentID:   "comment-001",
		Outcome:     domain.OutcomeSuccess,
		ProcessedAt: 1700000000000,
	})
	require.NoError(t, err)

	processed, err = store.IsProcessed(ctx, "comment-001")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestMarkerStore_DuplicateMark(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMarkerStore(pool)
	ctx := context.Background()

	m := &domain.ProcessedMarker{
		CommentID:   "comment-dup",
		Outcome:     domain.OutcomeFailed,
		ProcessedAt: 1700000000000,
	}
	require.NoError(t, store.MarkProcessed(ctx, m))

	// Second mark with a different outcome must not overwrite the first.
	m2 := &domain.ProcessedMarker{
		CommentID:   "comment-dup",
		Outcome:     domain.OutcomeSuccess,
		ProcessedAt: 1700000001000,
	}
	err := store.MarkProcessed(ctx, m2)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}
