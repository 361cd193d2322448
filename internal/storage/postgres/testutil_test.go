package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL container for testing and applies the
// embedded migrations. Returns a cleanup function that must be called after
// tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	runTestMigrations(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// runTestMigrations applies the schema. Inlined rather than importing the
// migrations package to avoid an import cycle (migrations imports postgres).
func runTestMigrations(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS processed_markers (
			comment_id   TEXT PRIMARY KEY,
			outcome      TEXT NOT NULL,
			processed_at BIGINT NOT NULL,
			created_at   BIGINT NOT NULL DEFAULT (EXTRACT(EPOCH FROM NOW()) * 1000)::BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS creator_profiles (
			username    TEXT PRIMARY KEY,
			full_name   TEXT NOT NULL DEFAULT '',
			followers   BIGINT NOT NULL DEFAULT 0,
			avatar_path TEXT NOT NULL DEFAULT '',
			avatar_url  TEXT NOT NULL DEFAULT '',
			fetched_at  BIGINT NOT NULL,
			created_at  BIGINT NOT NULL DEFAULT (EXTRACT(EPOCH FROM NOW()) * 1000)::BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS deployments (
			deployment_id TEXT PRIMARY KEY,
			comment_id    TEXT NOT NULL UNIQUE,
			comment_text  TEXT NOT NULL DEFAULT '',
			post_url      TEXT NOT NULL DEFAULT '',
			username      TEXT NOT NULL,
			token_name    TEXT NOT NULL,
			ticker        TEXT NOT NULL,
			mint_address  TEXT NOT NULL DEFAULT '',
			tx_signature  TEXT NOT NULL DEFAULT '',
			token_url     TEXT NOT NULL DEFAULT '',
			metadata_uri  TEXT NOT NULL DEFAULT '',
			reply_id      TEXT NOT NULL DEFAULT '',
			status        TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			deployed_at   BIGINT NOT NULL,
			created_at    BIGINT NOT NULL DEFAULT (EXTRACT(EPOCH FROM NOW()) * 1000)::BIGINT
		)`,
	}

	for _, stmt := range stmts {
		_, err := pool.Exec(ctx, stmt)
		require.NoError(t, err, "failed to apply schema")
	}
}
