// Package orchestrator runs the polling loop that turns Instagram
// comments into token deployments.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"feedo/internal/command"
	"feedo/internal/deployer"
	"feedo/internal/domain"
	"feedo/internal/feed"
	"feedo/internal/observability"
	"feedo/internal/storage"
)

// DefaultPollInterval is the cycle interval when none is configured.
const DefaultPollInterval = 60 * time.Second

// FeedClient lists posts and their comments.
type FeedClient interface {
	ListRecentPosts(ctx context.Context, accountID string) ([]*domain.Post, error)
	ListComments(ctx context.Context, post *domain.Post) ([]*domain.Comment, error)
}

// Notifier posts a reply to a comment and returns the reply ID.
type Notifier interface {
	Reply(ctx context.Context, commentID, message string) (string, error)
}

// ProfileAcquirer resolves a creator profile, avatar included.
type ProfileAcquirer interface {
	Acquire(ctx context.Context, username string) (*domain.CreatorProfile, error)
}

// TokenDeployer launches one token per accepted command.
type TokenDeployer interface {
	Deploy(ctx context.Context, req deployer.Request) (*deployer.Result, error)
}

// IDFunc computes the deterministic deployment ID for a comment/command
// pair.
type IDFunc func(commentID, tokenName, ticker string) string

// Options configures Orchestrator.
type Options struct {
	Feed     FeedClient
	Notifier Notifier
	Acquirer ProfileAcquirer
	Deployer TokenDeployer

	Markers     storage.ProcessedMarkerStore
	Profiles    storage.ProfileStore
	Deployments storage.DeploymentStore
	Events      storage.DeploymentEventStore // optional analytics sink

	AccountID    string
	Handle       string // target mention handle, without the @
	PollInterval time.Duration
	DeploymentID IDFunc
	Metrics      *observability.Metrics
}

// Orchestrator drives the comment-to-token pipeline. Comments are
// processed sequentially within a cycle, which bounds concurrent
// deployer invocations to one.
type Orchestrator struct {
	feed     FeedClient
	notifier Notifier
	acquirer ProfileAcquirer
	deployer TokenDeployer

	markers     storage.ProcessedMarkerStore
	profiles    storage.ProfileStore
	deployments storage.DeploymentStore
	events      storage.DeploymentEventStore

	accountID    string
	handle       string
	pollInterval time.Duration
	deploymentID IDFunc
	metrics      *observability.Metrics
	logger       *log.Logger

	// seen is a same-cycle-and-later fast path over the durable marker
	// store, never the sole guard. Single goroutine, no locking.
	seen map[string]struct{}
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	return &Orchestrator{
		feed:         opts.Feed,
		notifier:     opts.Notifier,
		acquirer:     opts.Acquirer,
		deployer:     opts.Deployer,
		markers:      opts.Markers,
		profiles:     opts.Profiles,
		deployments:  opts.Deployments,
		events:       opts.Events,
		accountID:    opts.AccountID,
		handle:       opts.Handle,
		pollInterval: pollInterval,
		deploymentID: opts.DeploymentID,
		metrics:      metrics,
		logger:       log.New(os.Stdout, "[orchestrator] ", log.LstdFlags),
		seen:         make(map[string]struct{}),
	}
}

// Run polls until ctx is cancelled. A whole-cycle failure is logged and
// followed by a full-interval backoff; the loop never crashes for a
// single bad item.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Printf("starting: account=%s handle=@%s interval=%s", o.accountID, o.handle, o.pollInterval)

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		start := time.Now()
		if err := o.RunCycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			o.logger.Printf("cycle failed: %v", err)
			o.metrics.RecordCycleStatus("error", time.Since(start).Seconds())
		} else {
			o.metrics.RecordCycleStatus("ok", time.Since(start).Seconds())
			o.metrics.LastSuccessfulCycle.SetToCurrentTime()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle performs one full pass over recent posts and their comments.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	cycleID := uuid.NewString()[:8]

	posts, err := o.feed.ListRecentPosts(ctx, o.accountID)
	if err != nil {
		o.metrics.FeedErrors.WithLabelValues("list_posts").Inc()
		return &TransportError{Op: "list recent posts", Err: err}
	}
	o.metrics.PostsListed.Add(float64(len(posts)))

	for _, post := range posts {
		comments, err := o.feed.ListComments(ctx, post)
		if err != nil {
			// A single post's comment listing failing does not abort
			// the cycle; the post is retried next cycle.
			o.metrics.FeedErrors.WithLabelValues("list_comments").Inc()
			o.logger.Printf("[%s] list comments for post %s: %v", cycleID, post.ID, err)
			continue
		}

		for _, comment := range comments {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.processComment(ctx, cycleID, comment)
		}
	}
	return nil
}

// processComment walks one comment to a terminal state. Errors are
// handled internally; a comment left unmarked is retried next cycle.
func (o *Orchestrator) processComment(ctx context.Context, cycleID string, comment *domain.Comment) {
	if _, ok := o.seen[comment.ID]; ok {
		o.metrics.CommentsSkipped.Inc()
		return
	}
	o.metrics.CommentsSeen.Inc()

	processed, err := o.markers.IsProcessed(ctx, comment.ID)
	if err != nil {
		// Pre-deployer persistence failure: abort the item unmarked,
		// retry next cycle. Never risk a double deployment.
		perr := &PersistenceError{Op: "check marker", Err: err}
		o.logger.Printf("[%s] comment %s: %v", cycleID, comment.ID, perr)
		return
	}
	if processed {
		o.seen[comment.ID] = struct{}{}
		o.metrics.CommentsSkipped.Inc()
		return
	}

	cmd, reason := command.Parse(comment.Text, o.handle)
	if reason != domain.RejectNone {
		o.handleRejected(ctx, cycleID, comment, reason)
		return
	}
	o.metrics.CommandsParsed.Inc()

	o.handleCommand(ctx, cycleID, comment, cmd)
}

// handleRejected records the rejection and, for mentioning comments that
// failed to parse, posts one best-effort guidance reply. Rejected input
// never reaches the acquirer or the deployer.
func (o *Orchestrator) handleRejected(ctx context.Context, cycleID string, comment *domain.Comment, reason domain.RejectReason) {
	o.metrics.CommandsRejected.WithLabelValues(string(reason)).Inc()
	outcome := domain.OutcomeForReject(reason)

	if reason != domain.RejectNotMentioned {
		verr := &ValidationError{CommentID: comment.ID, Reason: string(reason)}
		o.logger.Printf("[%s] %v", cycleID, verr)
		o.reply(ctx, comment.ID, feed.RejectReply(o.handle, rejectDetail(reason)), "reject")
	}

	o.markTerminal(ctx, cycleID, comment, outcome, "", "", "", false)
}

// handleCommand runs acquisition, deployment and notification for one
// accepted command.
func (o *Orchestrator) handleCommand(ctx context.Context, cycleID string, comment *domain.Comment, cmd domain.Command) {
	o.logger.Printf("[%s] command from @%s: name=%s ticker=%s (comment %s)",
		cycleID, comment.Username, cmd.Name, cmd.Ticker, comment.ID)

	profile, err := o.resolveProfile(ctx, comment.Username)
	if err != nil {
		aerr := &AcquisitionError{Username: comment.Username, Err: err}
		o.logger.Printf("[%s] %v", cycleID, aerr)
		o.metrics.ScrapeErrors.Inc()
		o.recordFailure(ctx, cycleID, comment, cmd, fmt.Sprintf("could not fetch creator profile: %v", err), false)
		return
	}

	// Accepted at-least-once risk: a crash after this line and before
	// the marker write can re-deploy on restart. The intent line makes
	// the window auditable.
	o.logger.Printf("[%s] DEPLOY-INTENT comment=%s creator=@%s name=%s ticker=%s",
		cycleID, comment.ID, comment.Username, cmd.Name, cmd.Ticker)

	start := time.Now()
	result, err := o.deployer.Deploy(ctx, deployer.Request{
		TokenName:       cmd.Name,
		Ticker:          cmd.Ticker,
		ImagePath:       profile.AvatarPath,
		CreatorUsername: comment.Username,
	})
	if err != nil {
		derr := &DeploymentError{CommentID: comment.ID, Err: err}
		o.logger.Printf("[%s] %v", cycleID, derr)
		o.metrics.RecordDeploymentStatus("failed", time.Since(start).Seconds())
		o.recordFailure(ctx, cycleID, comment, cmd, err.Error(), true)
		return
	}
	o.metrics.RecordDeploymentStatus("success", time.Since(start).Seconds())
	o.metrics.LastSuccessfulDeployment.SetToCurrentTime()
	o.logger.Printf("[%s] deployed %s ($%s): mint=%s tx=%s",
		cycleID, cmd.Name, cmd.Ticker, result.MintAddress, result.TxSignature)

	now := time.Now().UnixMilli()
	record := &domain.DeploymentRecord{
		DeploymentID: o.deploymentID(comment.ID, cmd.Name, cmd.Ticker),
		CommentID:    comment.ID,
		CommentText:  comment.Text,
		PostURL:      comment.PostPermalink,
		Username:     comment.Username,
		TokenName:    cmd.Name,
		Ticker:       cmd.Ticker,
		MintAddress:  result.MintAddress,
		TxSignature:  result.TxSignature,
		TokenURL:     result.TokenURL,
		MetadataURI:  result.MetadataURI,
		Status:       domain.DeploymentSuccess,
		DeployedAt:   now,
		CreatedAt:    now,
	}

	message := feed.SuccessReply(o.handle, cmd.Name, cmd.Ticker, result.MintAddress, result.TxSignature)
	record.ReplyID = o.reply(ctx, comment.ID, message, "success")

	o.insertRecord(ctx, cycleID, record)
	o.markTerminal(ctx, cycleID, comment, domain.OutcomeSuccess, cmd.Name, cmd.Ticker, result.MintAddress, true)
}

// recordFailure persists a failed attempt, notifies the creator and
// writes the terminal marker. deployed reports whether the deployer was
// invoked before the failure.
func (o *Orchestrator) recordFailure(ctx context.Context, cycleID string, comment *domain.Comment, cmd domain.Command, errMsg string, deployed bool) {
	now := time.Now().UnixMilli()
	record := &domain.DeploymentRecord{
		DeploymentID: o.deploymentID(comment.ID, cmd.Name, cmd.Ticker),
		CommentID:    comment.ID,
		CommentText:  comment.Text,
		PostURL:      comment.PostPermalink,
		Username:     comment.Username,
		TokenName:    cmd.Name,
		Ticker:       cmd.Ticker,
		Status:       domain.DeploymentFailed,
		ErrorMessage: errMsg,
		DeployedAt:   now,
		CreatedAt:    now,
	}

	record.ReplyID = o.reply(ctx, comment.ID, feed.FailureReply(o.handle, errMsg), "failure")

	o.insertRecord(ctx, cycleID, record)
	o.markTerminal(ctx, cycleID, comment, domain.OutcomeFailed, cmd.Name, cmd.Ticker, "", deployed)
}

// resolveProfile serves cached profiles, re-acquiring when the cached
// avatar file no longer exists on disk.
func (o *Orchestrator) resolveProfile(ctx context.Context, username string) (*domain.CreatorProfile, error) {
	profile, err := o.profiles.GetByUsername(ctx, username)
	if err == nil {
		if _, statErr := os.Stat(profile.AvatarPath); statErr == nil {
			o.metrics.ProfileCacheHits.Inc()
			return profile, nil
		}
		o.logger.Printf("cached avatar for @%s missing on disk, re-acquiring", username)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, &PersistenceError{Op: "profile lookup", Err: err}
	}
	o.metrics.ProfileCacheMisses.Inc()

	profile, err = o.acquirer.Acquire(ctx, username)
	if err != nil {
		return nil, err
	}
	o.metrics.ProfilesScraped.Inc()

	if err := o.profiles.Put(ctx, profile); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		// Pre-deployer persistence failure: abort the item, nothing
		// irreversible has happened yet.
		return nil, &PersistenceError{Op: "profile put", Err: err}
	}
	return profile, nil
}

// reply posts one best-effort reply. Failures are logged and never alter
// the stored outcome.
func (o *Orchestrator) reply(ctx context.Context, commentID, message, kind string) string {
	replyID, err := o.notifier.Reply(ctx, commentID, message)
	if err != nil {
		nerr := &NotificationError{CommentID: commentID, Err: err}
		o.logger.Printf("%v", nerr)
		o.metrics.NotifierFailures.Inc()
		return ""
	}
	o.metrics.RepliesPosted.WithLabelValues(kind).Inc()
	return replyID
}

// insertRecord persists a deployment record. After a deploy this must
// not stop the marker write, so errors are logged only.
func (o *Orchestrator) insertRecord(ctx context.Context, cycleID string, record *domain.DeploymentRecord) {
	if err := o.deployments.Insert(ctx, record); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		perr := &PersistenceError{Op: "insert deployment", Err: err}
		o.logger.Printf("[%s] %v", cycleID, perr)
	}
}

// markTerminal writes the idempotency marker and emits the analytics
// event. A duplicate marker means another path already finished the
// comment, which is fine. deployed reports whether the deployer ran for
// this comment; once it has, the comment must never be retried in this
// process even if the marker write fails.
func (o *Orchestrator) markTerminal(ctx context.Context, cycleID string, comment *domain.Comment, outcome domain.Outcome, tokenName, ticker, mintAddress string, deployed bool) {
	marker := &domain.ProcessedMarker{
		CommentID:   comment.ID,
		Outcome:     outcome,
		ProcessedAt: time.Now().UnixMilli(),
	}
	if err := o.markers.MarkProcessed(ctx, marker); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		perr := &PersistenceError{Op: "mark processed", Err: err}
		o.logger.Printf("[%s] comment %s: %v", cycleID, comment.ID, perr)
		if !deployed {
			// Nothing irreversible happened. Leave the comment out of
			// the seen-set so a later cycle re-checks the durable store.
			return
		}
		// The mint happened. Pin the comment in memory so this process
		// cannot launch a second token; a restart before the marker
		// lands is the accepted crash window.
		o.logger.Printf("[%s] comment %s deployed but unmarked, pinning in memory", cycleID, comment.ID)
	}
	o.seen[comment.ID] = struct{}{}

	if o.events != nil {
		event := &storage.DeploymentEvent{
			CommentID:   comment.ID,
			Username:    comment.Username,
			Outcome:     outcome,
			TokenName:   tokenName,
			Ticker:      ticker,
			MintAddress: mintAddress,
			TimestampMs: marker.ProcessedAt,
		}
		if err := o.events.InsertBulk(ctx, []*storage.DeploymentEvent{event}); err != nil {
			o.logger.Printf("[%s] analytics insert for %s: %v", cycleID, comment.ID, err)
		}
	}
}

// rejectDetail renders a user-facing explanation for a reject reason.
func rejectDetail(reason domain.RejectReason) string {
	switch reason {
	case domain.RejectInvalidTicker:
		return fmt.Sprintf("The ticker must be %d-%d letters or numbers.", command.MinTickerLen, command.MaxTickerLen)
	default:
		return "No token name and $TICKER found in the comment."
	}
}
