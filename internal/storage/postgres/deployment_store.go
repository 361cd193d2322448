package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"feedo/internal/domain"
	"feedo/internal/storage"
)

// DeploymentStore implements storage.DeploymentStore using PostgreSQL.
type DeploymentStore struct {
	pool *Pool
}

// NewDeploymentStore creates a new DeploymentStore.
func NewDeploymentStore(pool *Pool) *DeploymentStore {
	return &DeploymentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DeploymentStore = (*DeploymentStore)(nil)

const deploymentColumns = `
	deployment_id, comment_id, comment_text, post_url, username,
	token_name, ticker, mint_address, tx_signature, token_url,
	metadata_uri, reply_id, status, error_message, deployed_at, created_at
`

// Insert adds a new deployment record. Returns ErrDuplicateKey if
// deployment_id exists.
func (s *DeploymentStore) Insert(ctx context.Context, d *domain.DeploymentRecord) error {
	if d == nil || d.DeploymentID == "" || d.CommentID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO deployments (
			deployment_id, comment_id, comment_text, post_url, username,
			token_name, ticker, mint_address, tx_signature, token_url,
			metadata_uri, reply_id, status, error_message, deployed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := s.pool.Exec(ctx, query,
		d.DeploymentID,
		d.CommentID,
		d.CommentText,
		d.PostURL,
		d.Username,
		d.TokenName,
		d.Ticker,
		d.MintAddress,
		d.TxSignature,
		d.TokenURL,
		d.MetadataURI,
		d.ReplyID,
		string(d.Status),
		d.ErrorMessage,
		d.DeployedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert deployment: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *DeploymentStore) GetByID(ctx context.Context, deploymentID string) (*domain.DeploymentRecord, error) {
	query := `SELECT ` + deploymentColumns + ` FROM deployments WHERE deployment_id = $1`

	row := s.pool.QueryRow(ctx, query, deploymentID)
	d, err := scanDeployment(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get deployment by id: %w", err)
	}
	return d, nil
}

// GetByUsername retrieves up to limit most recent records for a creator.
func (s *DeploymentStore) GetByUsername(ctx context.Context, username string, limit int) ([]*domain.DeploymentRecord, error) {
	query := `
		SELECT ` + deploymentColumns + `
		FROM deployments
		WHERE username = $1
		ORDER BY deployed_at DESC, deployment_id ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, username, limit)
	if err != nil {
		return nil, fmt.Errorf("get deployments by username: %w", err)
	}
	defer rows.Close()

	var records []*domain.DeploymentRecord
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deployment row: %w", err)
		}
		records = append(records, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployment rows: %w", err)
	}
	return records, nil
}

// Stats summarizes the deployment history.
func (s *DeploymentStore) Stats(ctx context.Context) (*domain.DeploymentStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'SUCCESS'),
			COUNT(*) FILTER (WHERE status = 'FAILED'),
			COUNT(DISTINCT username)
		FROM deployments
	`

	var stats domain.DeploymentStats
	err := s.pool.QueryRow(ctx, query).Scan(
		&stats.TotalDeployments,
		&stats.SuccessfulDeployments,
		&stats.FailedDeployments,
		&stats.TotalCreators,
	)
	if err != nil {
		return nil, fmt.Errorf("deployment stats: %w", err)
	}
	return &stats, nil
}

// scanDeployment scans a single row into a DeploymentRecord.
func scanDeployment(row pgx.Row) (*domain.DeploymentRecord, error) {
	var d domain.DeploymentRecord
	var statusStr string

	err := row.Scan(
		&d.DeploymentID,
		&d.CommentID,
		&d.CommentText,
		&d.PostURL,
		&d.Username,
		&d.TokenName,
		&d.Ticker,
		&d.MintAddress,
		&d.TxSignature,
		&d.TokenURL,
		&d.MetadataURI,
		&d.ReplyID,
		&statusStr,
		&d.ErrorMessage,
		&d.DeployedAt,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Status = domain.DeploymentStatus(statusStr)
	return &d, nil
}
