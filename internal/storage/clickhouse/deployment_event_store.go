package clickhouse

import (
	"context"
	"fmt"

	"feedo/internal/storage"
)

// DeploymentEventStore implements storage.DeploymentEventStore using ClickHouse.
// The table is a plain MergeTree: duplicates are tolerated, the sink is
// analytics-only and never consulted by the orchestrator.
type DeploymentEventStore struct {
	conn *Conn
}

// NewDeploymentEventStore creates a new DeploymentEventStore.
func NewDeploymentEventStore(conn *Conn) *DeploymentEventStore {
	return &DeploymentEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DeploymentEventStore = (*DeploymentEventStore)(nil)

// InsertBulk adds multiple events.
func (s *DeploymentEventStore) InsertBulk(ctx context.Context, events []*storage.DeploymentEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO deployment_events (
			comment_id, username, outcome, token_name, ticker, mint_address, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err := batch.Append(
			e.CommentID,
			e.Username,
			string(e.Outcome),
			e.TokenName,
			e.Ticker,
			e.MintAddress,
			e.TimestampMs,
		)
		if err != nil {
			return fmt.Errorf("append event: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}
