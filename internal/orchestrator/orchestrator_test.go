package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedo/internal/deployer"
	"feedo/internal/domain"
	"feedo/internal/idhash"
	"feedo/internal/storage"
	"feedo/internal/storage/memory"
)

const testHandle = "feedo3app"

type fakeFeed struct {
	posts    []*domain.Post
	comments map[string][]*domain.Comment

	postsErr    error
	commentsErr error

	listPostsCalls    int
	listCommentsCalls int
}

func (f *fakeFeed) ListRecentPosts(ctx context.Context, accountID string) ([]*domain.Post, error) {
	f.listPostsCalls++
	if f.postsErr != nil {
		return nil, f.postsErr
	}
	return f.posts, nil
}

func (f *fakeFeed) ListComments(ctx context.Context, post *domain.Post) ([]*domain.Comment, error) {
	f.listCommentsCalls++
	if f.commentsErr != nil {
		return nil, f.commentsErr
	}
	return f.comments[post.ID], nil
}

type fakeNotifier struct {
	calls    []string // messages in order
	byID     map[string][]string
	replyErr error
}

func (f *fakeNotifier) Reply(ctx context.Context, commentID, message string) (string, error) {
	if f.replyErr != nil {
		return "", f.replyErr
	}
	f.calls = append(f.calls, message)
	if f.byID == nil {
		f.byID = make(map[string][]string)
	}
	f.byID[commentID] = append(f.byID[commentID], message)
	return "reply-" + commentID, nil
}

type fakeAcquirer struct {
	profile *domain.CreatorProfile
	err     error
	calls   int
}

func (f *fakeAcquirer) Acquire(ctx context.Context, username string) (*domain.CreatorProfile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p := *f.profile
	p.Username = username
	return &p, nil
}

type fakeDeployer struct {
	result   *deployer.Result
	err      error
	calls    int
	requests []deployer.Request
}

func (f *fakeDeployer) Deploy(ctx context.Context, req deployer.Request) (*deployer.Result, error) {
	f.calls++
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// bufferedMarkerStore defers marker persistence until Flush, simulating
// a store with delayed writes.
type bufferedMarkerStore struct {
	inner   *memory.MarkerStore
	pending []*domain.ProcessedMarker
}

func (s *bufferedMarkerStore) IsProcessed(ctx context.Context, commentID string) (bool, error) {
	return s.inner.IsProcessed(ctx, commentID)
}

func (s *bufferedMarkerStore) MarkProcessed(ctx context.Context, m *domain.ProcessedMarker) error {
	s.pending = append(s.pending, m)
	return nil
}

func (s *bufferedMarkerStore) Flush(ctx context.Context) {
	for _, m := range s.pending {
		s.inner.MarkProcessed(ctx, m)
	}
	s.pending = nil
}

// testEnv wires an orchestrator against fakes and memory stores.
type testEnv struct {
	orch        *Orchestrator
	feed        *fakeFeed
	notifier    *fakeNotifier
	acquirer    *fakeAcquirer
	deployer    *fakeDeployer
	markers     storage.ProcessedMarkerStore
	profiles    *memory.ProfileStore
	deployments *memory.DeploymentStore
	events      *memory.DeploymentEventStore
}

func avatarFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "avatar_alice.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0o644))
	return path
}

func newTestEnv(t *testing.T, comments ...*domain.Comment) *testEnv {
	t.Helper()

	env := &testEnv{
		feed: &fakeFeed{
			posts: []*domain.Post{{ID: "post-1", Permalink: "https://instagram.com/p/abc"}},
			comments: map[string][]*domain.Comment{
				"post-1": comments,
			},
		},
		notifier: &fakeNotifier{},
		acquirer: &fakeAcquirer{
			profile: &domain.CreatorProfile{
				FullName:   "Alice A",
				Followers:  100,
				AvatarPath: avatarFile(t),
			},
		},
		deployer: &fakeDeployer{
			result: &deployer.Result{
				MintAddress: "Mint111",
				TxSignature: "Sig111",
				TokenURL:    "https://pump.fun/Mint111",
				TxURL:       "https://solscan.io/tx/Sig111",
				MetadataURI: "ipfs://meta",
			},
		},
		markers:     memory.NewMarkerStore(),
		profiles:    memory.NewProfileStore(),
		deployments: memory.NewDeploymentStore(),
		events:      memory.NewDeploymentEventStore(),
	}
	env.orch = New(Options{
		Feed:         env.feed,
		Notifier:     env.notifier,
		Acquirer:     env.acquirer,
		Deployer:     env.deployer,
		Markers:      env.markers,
		Profiles:     env.profiles,
		Deployments:  env.deployments,
		Events:       env.events,
		AccountID:    "acct-1",
		Handle:       testHandle,
		PollInterval: time.Hour,
		DeploymentID: idhash.ComputeDeploymentID,
	})
	return env
}

func comment(id, username, text string) *domain.Comment {
	return &domain.Comment{
		ID:            id,
		Text:          text,
		Username:      username,
		PostID:        "post-1",
		PostPermalink: "https://instagram.com/p/abc",
	}
}

func (e *testEnv) lastOutcome(t *testing.T, commentID string) domain.Outcome {
	t.Helper()
	for _, event := range e.events.Events() {
		if event.CommentID == commentID {
			return event.Outcome
		}
	}
	t.Fatalf("no terminal event for comment %s", commentID)
	return ""
}

func TestCycle_NotMentionedComment(t *testing.T) {
	env := newTestEnv(t, comment("c-1", "alice", "check this out"))

	require.NoError(t, env.orch.RunCycle(context.Background()))

	assert.Zero(t, env.acquirer.calls)
	assert.Zero(t, env.deployer.calls)
	assert.Empty(t, env.notifier.calls)

	processed, err := env.markers.IsProcessed(context.Background(), "c-1")
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, domain.OutcomeRejectedNotMention, env.lastOutcome(t, "c-1"))
}

func TestCycle_SuccessfulDeploy(t *testing.T) {
	env := newTestEnv(t, comment("c-1", "alice", "@feedo3app deploy Rocket $RKT"))

	require.NoError(t, env.orch.RunCycle(context.Background()))

	require.Equal(t, 1, env.deployer.calls)
	req := env.deployer.requests[0]
	assert.Equal(t, "Rocket", req.TokenName)
	assert.Equal(t, "RKT", req.Ticker)
	assert.Equal(t, "alice", req.CreatorUsername)
	assert.NotEmpty(t, req.ImagePath)

	require.Len(t, env.notifier.calls, 1)
	assert.Contains(t, env.notifier.calls[0], "Rocket ($RKT)")
	assert.Contains(t, env.notifier.calls[0], "https://pump.fun/Mint111")

	assert.Equal(t, domain.OutcomeSuccess, env.lastOutcome(t, "c-1"))

	record, err := env.deployments.GetByID(context.Background(), idhash.ComputeDeploymentID("c-1", "Rocket", "RKT"))
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentSuccess, record.Status)
	assert.Equal(t, "Mint111", record.MintAddress)
	assert.Equal(t, "Sig111", record.TxSignature)
	assert.Equal(t, "reply-c-1", record.ReplyID)
	assert.Equal(t, "https://instagram.com/p/abc", record.PostURL)
}

func TestCycle_InvalidTicker(t *testing.T) {
	env := newTestEnv(t, comment("c-1", "alice", "@feedo3app deploy Rocket $AB"))

	require.NoError(t, env.orch.RunCycle(context.Background()))

	assert.Zero(t, env.acquirer.calls)
	assert.Zero(t, env.deployer.calls)
	assert.Equal(t, domain.OutcomeRejectedBadTicker, env.lastOutcome(t, "c-1"))

	// One guidance reply for a mentioning comment that failed to parse
	require.Len(t, env.notifier.calls, 1)
	assert.Contains(t, env.notifier.calls[0], "ticker")
}

func TestCycle_AcquisitionFailure(t *testing.T) {
	env := newTestEnv(t, comment("c-1", "alice", "@feedo3app deploy Rocket $RKT"))
	env.acquirer.err = errors.New("scraper run timed out")

	require.NoError(t, env.orch.RunCycle(context.Background()))

	assert.Equal(t, 1, env.acquirer.calls)
	assert.Zero(t, env.deployer.calls, "deployer must not run without an avatar")
	assert.Equal(t, domain.OutcomeFailed, env.lastOutcome(t, "c-1"))

	require.Len(t, env.notifier.calls, 1)
	assert.Contains(t, env.notifier.calls[0], "deployment failed")

	record, err := env.deployments.GetByID(context.Background(), idhash.ComputeDeploymentID("c-1", "Rocket", "RKT"))
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentFailed, record.Status)
	assert.Contains(t, record.ErrorMessage, "scraper run timed out")
}

func TestCycle_DeploymentFailure(t *testing.T) {
	env := newTestEnv(t, comment("c-1", "alice", "@feedo3app deploy Rocket $RKT"))
	env.deployer.err = errors.New("transaction simulation failed")

	require.NoError(t, env.orch.RunCycle(context.Background()))

	assert.Equal(t, 1, env.deployer.calls)
	assert.Equal(t, domain.OutcomeFailed, env.lastOutcome(t, "c-1"))

	require.Len(t, env.notifier.calls, 1)
	assert.Contains(t, env.notifier.calls[0], "transaction simulation failed")

	record, err := env.deployments.GetByID(context.Background(), idhash.ComputeDeploymentID("c-1", "Rocket", "RKT"))
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentFailed, record.Status)
}

func TestCycle_SecondCycleZeroExternalCalls(t *testing.T) {
	env := newTestEnv(t, comment("c-1", "alice", "@feedo3app deploy Rocket $RKT"))

	require.NoError(t, env.orch.RunCycle(context.Background()))
	require.NoError(t, env.orch.RunCycle(context.Background()))

	assert.Equal(t, 1, env.acquirer.calls)
	assert.Equal(t, 1, env.deployer.calls)
	assert.Len(t, env.notifier.calls, 1)
}

func TestCycle_PreexistingMarkerSkipsComment(t *testing.T) {
	env := newTestEnv(t, comment("c-1", "alice", "@feedo3app deploy Rocket $RKT"))
	require.NoError(t, env.markers.MarkProcessed(context.Background(), &domain.ProcessedMarker{
		CommentID:   "c-1",
		Outcome:     domain.OutcomeSuccess,
		ProcessedAt: time.Now().UnixMilli(),
	}))

	require.NoError(t, env.orch.RunCycle(context.Background()))

	assert.Zero(t, env.acquirer.calls)
	assert.Zero(t, env.deployer.calls)
	assert.Empty(t, env.notifier.calls)
}

func TestCycle_AtMostOnceWithDelayedMarkerWrites(t *testing.T) {
	env := newTestEnv(t, comment("c-1", "alice", "@feedo3app deploy Rocket $RKT"))
	buffered := &bufferedMarkerStore{inner: memory.NewMarkerStore()}
	env.orch.markers = buffered

	// The durable marker is not visible between cycles, the seen-set
	// must still prevent a second submission.
	require.NoError(t, env.orch.RunCycle(context.Background()))
	require.NoError(t, env.orch.RunCycle(context.Background()))

	assert.Equal(t, 1, env.deployer.calls)

	buffered.Flush(context.Background())
	processed, err := buffered.IsProcessed(context.Background(), "c-1")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestCycle_ProfileCacheHitSkipsAcquirer(t *testing.T) {
	env := newTestEnv(t, comment("c-1", "alice", "@feedo3app deploy Rocket $RKT"))
	require.NoError(t, env.profiles.Put(context.Background(), &domain.CreatorProfile{
		Username:   "alice",
		AvatarPath: avatarFile(t),
	}))

	require.NoError(t, env.orch.RunCycle(context.Background()))

	assert.Zero(t, env.acquirer.calls)
	assert.Equal(t, 1, env.deployer.calls)
}

func TestCycle_MissingCachedAvatarReacquires(t *testing.T) {
	env := newTestEnv(t, comment("c-1", "alice", "@feedo3app deploy Rocket $RKT"))
	require.NoError(t, env.profiles.Put(context.Background(), &domain.CreatorProfile{
		Username:   "alice",
		AvatarPath: "/nonexistent/avatar_alice.jpg",
	}))

	require.NoError(t, env.orch.RunCycle(context.Background()))

	assert.Equal(t, 1, env.acquirer.calls)
	assert.Equal(t, 1, env.deployer.calls)
}

func TestCycle_MarkerCheckFailureLeavesCommentUnmarked(t *testing.T) {
	env := newTestEnv(t, comment("c-1", "alice", "@feedo3app deploy Rocket $RKT"))
	failing := &failingMarkerStore{checkErr: errors.New("connection refused")}
	env.orch.markers = failing

	require.NoError(t, env.orch.RunCycle(context.Background()))

	assert.Zero(t, env.deployer.calls)
	assert.Empty(t, env.notifier.calls)

	// Store recovers, the comment is processed on the next cycle
	failing.checkErr = nil
	failing.inner = memory.NewMarkerStore()
	require.NoError(t, env.orch.RunCycle(context.Background()))
	assert.Equal(t, 1, env.deployer.calls)
}

type failingMarkerStore struct {
	inner    *memory.MarkerStore
	checkErr error
	markErr  error
}

func (s *failingMarkerStore) IsProcessed(ctx context.Context, commentID string) (bool, error) {
	if s.checkErr != nil {
		return false, s.checkErr
	}
	return s.inner.IsProcessed(ctx, commentID)
}

func (s *failingMarkerStore) MarkProcessed(ctx context.Context, m *domain.ProcessedMarker) error {
	if s.markErr != nil {
		return s.markErr
	}
	return s.inner.MarkProcessed(ctx, m)
}

func TestCycle_MarkerWriteFailureAfterDeployDoesNotRelaunch(t *testing.T) {
	env := newTestEnv(t, comment("c-1", "alice", "@feedo3app deploy Rocket $RKT"))
	// IsProcessed finds nothing, every marker write fails.
	env.orch.markers = &failingMarkerStore{
		inner:   memory.NewMarkerStore(),
		markErr: errors.New("connection reset"),
	}

	require.NoError(t, env.orch.RunCycle(context.Background()))
	require.NoError(t, env.orch.RunCycle(context.Background()))

	assert.Equal(t, 1, env.deployer.calls, "a deployed comment must never relaunch in this process")
	assert.Len(t, env.notifier.calls, 1)
}

func TestCycle_MarkerWriteFailureOnRejectRetries(t *testing.T) {
	env := newTestEnv(t, comment("c-1", "alice", "just lurking"))
	failing := &failingMarkerStore{
		inner:   memory.NewMarkerStore(),
		markErr: errors.New("connection reset"),
	}
	env.orch.markers = failing

	require.NoError(t, env.orch.RunCycle(context.Background()))
	assert.Empty(t, env.events.Events(), "no terminal event while unmarked")

	// Store recovers, the rejection lands on the next cycle.
	failing.markErr = nil
	require.NoError(t, env.orch.RunCycle(context.Background()))
	assert.Equal(t, domain.OutcomeRejectedNotMention, env.lastOutcome(t, "c-1"))
}

func TestCycle_NotifierFailureDoesNotBlockMarker(t *testing.T) {
	env := newTestEnv(t, comment("c-1", "alice", "@feedo3app deploy Rocket $RKT"))
	env.notifier.replyErr = errors.New("rate limited")

	require.NoError(t, env.orch.RunCycle(context.Background()))

	assert.Equal(t, 1, env.deployer.calls)
	assert.Equal(t, domain.OutcomeSuccess, env.lastOutcome(t, "c-1"))

	record, err := env.deployments.GetByID(context.Background(), idhash.ComputeDeploymentID("c-1", "Rocket", "RKT"))
	require.NoError(t, err)
	assert.Empty(t, record.ReplyID)
	assert.Equal(t, domain.DeploymentSuccess, record.Status)
}

func TestCycle_FeedOutageIsTransportError(t *testing.T) {
	env := newTestEnv(t)
	env.feed.postsErr = errors.New("timeout")

	err := env.orch.RunCycle(context.Background())
	require.Error(t, err)

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
}

func TestCycle_CommentListingFailureDoesNotAbortCycle(t *testing.T) {
	env := newTestEnv(t, comment("c-1", "alice", "check this out"))
	env.feed.commentsErr = errors.New("timeout")

	require.NoError(t, env.orch.RunCycle(context.Background()))

	processed, err := env.markers.IsProcessed(context.Background(), "c-1")
	require.NoError(t, err)
	assert.False(t, processed, "comment must be retried next cycle")
}

func TestCycle_MultipleCommentsSequential(t *testing.T) {
	env := newTestEnv(t,
		comment("c-1", "alice", "@feedo3app deploy Rocket $RKT"),
		comment("c-2", "bob", "nice post"),
		comment("c-3", "carol", "@feedo3app Luna $LUNA"),
	)

	require.NoError(t, env.orch.RunCycle(context.Background()))

	require.Equal(t, 2, env.deployer.calls)
	assert.Equal(t, "Rocket", env.deployer.requests[0].TokenName)
	assert.Equal(t, "Luna", env.deployer.requests[1].TokenName)

	assert.Equal(t, domain.OutcomeSuccess, env.lastOutcome(t, "c-1"))
	assert.Equal(t, domain.OutcomeRejectedNotMention, env.lastOutcome(t, "c-2"))
	assert.Equal(t, domain.OutcomeSuccess, env.lastOutcome(t, "c-3"))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	env := newTestEnv(t)
	env.orch.pollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := env.orch.Run(ctx)
	require.Error(t, err)
	assert.GreaterOrEqual(t, env.feed.listPostsCalls, 1)
}
