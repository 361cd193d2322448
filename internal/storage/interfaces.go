package storage

import (
	"context"

	"feedo/internal/domain"
)

// ProcessedMarkerStore is the durable idempotency ledger. A comment ID
// with a marker is never re-submitted to the deployer.
type ProcessedMarkerStore interface {
	// IsProcessed reports whether a marker exists for the comment ID.
	IsProcessed(ctx context.Context, commentID string) (bool, error)

	// MarkProcessed writes the marker for a comment. First write wins;
	// returns ErrDuplicateKey if the comment is already marked.
	MarkProcessed(ctx context.Context, m *domain.ProcessedMarker) error
}

// ProfileStore caches creator profiles keyed by username.
type ProfileStore interface {
	// GetByUsername retrieves a cached profile. Returns ErrNotFound if
	// the username has not been acquired yet.
	GetByUsername(ctx context.Context, username string) (*domain.CreatorProfile, error)

	// Put stores a profile. Returns ErrDuplicateKey if the username is
	// already cached; callers may ignore it (profiles are immutable).
	Put(ctx context.Context, p *domain.CreatorProfile) error
}

// DeploymentStore provides access to deployment history.
type DeploymentStore interface {
	// Insert adds a new deployment record. Returns ErrDuplicateKey if
	// deployment_id exists.
	Insert(ctx context.Context, d *domain.DeploymentRecord) error

	// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, deploymentID string) (*domain.DeploymentRecord, error)

	// GetByUsername retrieves up to limit most recent records for a creator,
	// ordered by deployed_at DESC.
	GetByUsername(ctx context.Context, username string, limit int) ([]*domain.DeploymentRecord, error)

	// Stats summarizes the deployment history.
	Stats(ctx context.Context) (*domain.DeploymentStats, error)
}

// DeploymentEvent is a flattened terminal outcome for analytics.
type DeploymentEvent struct {
	CommentID   string
	Username    string
	Outcome     domain.Outcome
	TokenName   string
	Ticker      string
	MintAddress string
	TimestampMs int64
}

// DeploymentEventStore is a best-effort analytics sink for terminal
// comment outcomes. Failures must never block the deployment pipeline.
type DeploymentEventStore interface {
	// InsertBulk adds multiple events.
	InsertBulk(ctx context.Context, events []*DeploymentEvent) error
}
