package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"feedo/internal/domain"
)

// Acquisition failure modes.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoAvatar        = errors.New("profile has no avatar")
	ErrRunTimeout      = errors.New("scraper run timed out")
)

// Default polling behavior for actor runs.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxWait      = 60 * time.Second
)

// AcquirerOptions configures Acquirer.
type AcquirerOptions struct {
	Client       *Client
	AvatarDir    string        // directory for downloaded avatars
	PollInterval time.Duration // 0 means DefaultPollInterval
	MaxWait      time.Duration // 0 means DefaultMaxWait
	HTTPClient   *http.Client  // used for avatar downloads, nil means default
}

// Acquirer runs the scraper actor to completion and downloads the
// creator's avatar to local disk.
type Acquirer struct {
	client       *Client
	avatarDir    string
	pollInterval time.Duration
	maxWait      time.Duration
	httpClient   *http.Client
	logger       *log.Logger
}

// NewAcquirer creates an Acquirer.
func NewAcquirer(opts AcquirerOptions) *Acquirer {
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	maxWait := opts.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Acquirer{
		client:       opts.Client,
		avatarDir:    opts.AvatarDir,
		pollInterval: pollInterval,
		maxWait:      maxWait,
		httpClient:   httpClient,
		logger:       log.New(os.Stdout, "[scraper] ", log.LstdFlags),
	}
}

// Acquire scrapes a creator profile and downloads its avatar. It blocks
// until the actor run reaches a terminal state or maxWait elapses.
func (a *Acquirer) Acquire(ctx context.Context, username string) (*domain.CreatorProfile, error) {
	run, err := a.client.StartRun(ctx, username)
	if err != nil {
		return nil, err
	}
	a.logger.Printf("started run %s for @%s", run.ID, username)

	status, err := a.waitForRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	if status != RunStatusSucceeded {
		return nil, fmt.Errorf("run %s for @%s finished with status %s", run.ID, username, status)
	}

	items, err := a.client.DatasetItems(ctx, run.DatasetID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("@%s: %w", username, ErrProfileNotFound)
	}

	item := items[0]
	avatarURL := item.AvatarURL()
	if avatarURL == "" {
		return nil, fmt.Errorf("@%s: %w", username, ErrNoAvatar)
	}

	avatarPath, err := a.downloadAvatar(ctx, username, avatarURL)
	if err != nil {
		return nil, fmt.Errorf("download avatar for @%s: %w", username, err)
	}

	now := time.Now().UnixMilli()
	return &domain.CreatorProfile{
		Username:   username,
		FullName:   item.FullName,
		Followers:  item.FollowersCount,
		AvatarPath: avatarPath,
		AvatarURL:  avatarURL,
		FetchedAt:  now,
		CreatedAt:  now,
	}, nil
}

func (a *Acquirer) waitForRun(ctx context.Context, runID string) (string, error) {
	deadline := time.Now().Add(a.maxWait)
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		status, err := a.client.RunStatus(ctx, runID)
		if err != nil {
			return "", err
		}
		switch status {
		case RunStatusSucceeded, RunStatusFailed, RunStatusAborted:
			return status, nil
		}

		if time.Now().After(deadline) {
			return "", fmt.Errorf("run %s: %w", runID, ErrRunTimeout)
		}
	}
}

// downloadAvatar fetches the avatar image into avatarDir and returns the
// local path. The file is removed by the caller once the deployment that
// consumed it completes.
func (a *Acquirer) downloadAvatar(ctx context.Context, username, avatarURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, avatarURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(a.avatarDir, 0o755); err != nil {
		return "", fmt.Errorf("create avatar dir: %w", err)
	}

	path := filepath.Join(a.avatarDir, fmt.Sprintf("avatar_%s.jpg", username))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	return path, nil
}
