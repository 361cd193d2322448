package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedo/internal/domain"
	"feedo/internal/storage"
)

func testDeployment(id, commentID, username string, status domain.DeploymentStatus, deployedAt int64) *domain.DeploymentRecord {
	return &domain.DeploymentRecord{
		DeploymentID: id,
		CommentID:    commentID,
		CommentText:  "@feedo3app deploy Rocket $RKT",
		PostURL:      "https://instagram.com/p/test",
		Username:     username,
		TokenName:    "Rocket",
		Ticker:       "RKT",
		MintAddress:  "Mint111",
		TxSignature:  "Sig111",
		TokenURL:     "https://pump.fun/Mint111",
		MetadataURI:  "ipfs://meta111",
		ReplyID:      "reply-1",
		Status:       status,
		DeployedAt:   deployedAt,
	}
}

func TestDeploymentStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDeploymentStore(pool)
	ctx := context.Background()

	d := testDeployment("dep-001", "comment-001", "alice", domain.DeploymentSuccess, 1700000000000)
	require.NoError(t, store.Insert(ctx, d))

	got, err := store.GetByID(ctx, "dep-001")
	require.NoError(t, err)

	assert.Equal(t, d.DeploymentID, got.DeploymentID)
	assert.Equal(t, d.CommentID, got.CommentID)
	assert.Equal(t, d.Username, got.Username)
	assert.Equal(t, d.TokenName, got.TokenName)
	assert.Equal(t, d.Ticker, got.Ticker)
	assert.Equal(t, d.MintAddress, got.MintAddress)
	assert.Equal(t, d.TxSignature, got.TxSignature)
	assert.Equal(t, d.Status, got.Status)
	assert.Equal(t, d.DeployedAt, got.DeployedAt)
	assert.NotZero(t, got.CreatedAt)
}

func TestDeploymentStore_DuplicateCommentID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDeploymentStore(pool)
	ctx := context.Background()

	d1 := testDeployment("dep-001", "comment-001", "alice", domain.DeploymentSuccess, 1700000000000)
	require.NoError(t, store.Insert(ctx, d1))

	// Same comment, different deployment ID: the comment_id unique
	// constraint must reject the second record.
	d2 := testDeployment("dep-002", "comment-001", "alice", domain.DeploymentFailed, 1700000001000)
	err := store.Insert(ctx, d2)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestDeploymentStore_GetByUsernameOrdering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDeploymentStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testDeployment("dep-a", "c1", "alice", domain.DeploymentSuccess, 100)))
	require.NoError(t, store.Insert(ctx, testDeployment("dep-b", "c2", "alice", domain.DeploymentFailed, 300)))
	require.NoError(t, store.Insert(ctx, testDeployment("dep-c", "c3", "alice", domain.DeploymentSuccess, 200)))
	require.NoError(t, store.Insert(ctx, testDeployment("dep-d", "c4", "bob", domain.DeploymentSuccess, 400)))

	got, err := store.GetByUsername(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "dep-b", got[0].DeploymentID)
	assert.Equal(t, "dep-c", got[1].DeploymentID)
}

func TestDeploymentStore_Stats(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDeploymentStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testDeployment("dep-a", "c1", "alice", domain.DeploymentSuccess, 100)))
	require.NoError(t, store.Insert(ctx, testDeployment("dep-b", "c2", "alice", domain.DeploymentFailed, 200)))
	require.NoError(t, store.Insert(ctx, testDeployment("dep-c", "c3", "bob", domain.DeploymentSuccess, 300)))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.TotalDeployments)
	assert.Equal(t, int64(2), stats.SuccessfulDeployments)
	assert.Equal(t, int64(1), stats.FailedDeployments)
	assert.Equal(t, int64(2), stats.TotalCreators)
}
