package memory

import (
	"context"
	"errors"
	"testing"

	"feedo/internal/domain"
	"feedo/internal/storage"
)

func testRecord(id, commentID, username string, status domain.DeploymentStatus, deployedAt int64) *domain.DeploymentRecord {
	return &domain.DeploymentRecord{
		DeploymentID: id,
		CommentID:    commentID,
		Username:     username,
		TokenName:    "Rocket",
		Ticker:       "RKT",
		Status:       status,
		DeployedAt:   deployedAt,
	}
}

func TestDeploymentStore_InsertAndGet(t *testing.T) {
	store := NewDeploymentStore()
	ctx := context.Background()

	d := testRecord("dep-1", "comment-1", "alice", domain.DeploymentSuccess, 1704067200000)
	if err := store.Insert(ctx, d); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "dep-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.CommentID != "comment-1" || got.Ticker != "RKT" {
		t.Errorf("record mismatch: %+v", got)
	}
}

func TestDeploymentStore_Duplicate(t *testing.T) {
	store := NewDeploymentStore()
	ctx := context.Background()

	d := testRecord("dep-1", "comment-1", "alice", domain.DeploymentSuccess, 1704067200000)
	if err := store.Insert(ctx, d); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	err := store.Insert(ctx, d)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestDeploymentStore_GetByUsername(t *testing.T) {
	store := NewDeploymentStore()
	ctx := context.Background()

	records := []*domain.DeploymentRecord{
		testRecord("dep-1", "c1", "alice", domain.DeploymentSuccess, 100),
		testRecord("dep-2", "c2", "alice", domain.DeploymentFailed, 300),
		testRecord("dep-3", "c3", "alice", domain.DeploymentSuccess, 200),
		testRecord("dep-4", "c4", "bob", domain.DeploymentSuccess, 400),
	}
	for _, d := range records {
		if err := store.Insert(ctx, d); err != nil {
			t.Fatalf("Insert %s failed: %v", d.DeploymentID, err)
		}
	}

	got, err := store.GetByUsername(ctx, "alice", 2)
	if err != nil {
		t.Fatalf("GetByUsername failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	// Most recent first
	if got[0].DeploymentID != "dep-2" || got[1].DeploymentID != "dep-3" {
		t.Errorf("ordering mismatch: got %s, %s", got[0].DeploymentID, got[1].DeploymentID)
	}
}

func TestDeploymentStore_Stats(t *testing.T) {
	store := NewDeploymentStore()
	ctx := context.Background()

	records := []*domain.DeploymentRecord{
		testRecord("dep-1", "c1", "alice", domain.DeploymentSuccess, 100),
		testRecord("dep-2", "c2", "alice", domain.DeploymentFailed, 200),
		testRecord("dep-3", "c3", "bob", domain.DeploymentSuccess, 300),
	}
	for _, d := range records {
		if err := store.Insert(ctx, d); err != nil {
			t.Fatalf("Insert %s failed: %v", d.DeploymentID, err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalDeployments != 3 {
		t.Errorf("TotalDeployments = %d, want 3", stats.TotalDeployments)
	}
	if stats.SuccessfulDeployments != 2 {
		t.Errorf("SuccessfulDeployments = %d, want 2", stats.SuccessfulDeployments)
	}
	if stats.FailedDeployments != 1 {
		t.Errorf("FailedDeployments = %d, want 1", stats.FailedDeployments)
	}
	if stats.TotalCreators != 2 {
		t.Errorf("TotalCreators = %d, want 2", stats.TotalCreators)
	}
}
