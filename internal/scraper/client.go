// Package scraper acquires Instagram creator profiles and avatars through
// the Apify instagram-profile-scraper actor.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.apify.com/v2"
	DefaultActorID = "apify~instagram-profile-scraper"
	DefaultTimeout = 30 * time.Second
)

// Terminal actor run states.
const (
	RunStatusSucceeded = "SUCCEEDED"
	RunStatusFailed    = "FAILED"
	RunStatusAborted   = "ABORTED"
)

// Run identifies a started actor run and its output dataset.
type Run struct {
	ID        string
	DatasetID string
}

// ProfileItem is a single scraped profile from the actor's dataset.
type ProfileItem struct {
	Username        string `json:"username"`
	FullName        string `json:"fullName"`
	FollowersCount  int64  `json:"followersCount"`
	Biography       string `json:"biography"`
	ProfilePicURL   string `json:"profilePicUrl"`
	ProfilePicURLHD string `json:"profilePicUrlHD"`
}

// AvatarURL prefers the HD picture when the actor returns one.
func (p ProfileItem) AvatarURL() string {
	if p.ProfilePicURLHD != "" {
		return p.ProfilePicURLHD
	}
	return p.ProfilePicURL
}

// Client calls the Apify REST API.
type Client struct {
	baseURL string
	actorID string
	token   string
	client  *http.Client
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the Apify base URL (used in tests).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithActorID overrides the actor used for profile scraping.
func WithActorID(id string) ClientOption {
	return func(c *Client) {
		c.actorID = id
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new Apify client.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		actorID: DefaultActorID,
		token:   token,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// runEnvelope wraps actor run responses.
type runEnvelope struct {
	Data struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"data"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// StartRun submits a scraping job for a single username and returns the
// run handle without waiting for completion.
func (c *Client) StartRun(ctx context.Context, username string) (*Run, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"usernames":    []string{username},
		"resultsLimit": 1,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal actor input: %w", err)
	}

	endpoint := fmt.Sprintf("%s/acts/%s/runs?token=%s", c.baseURL, c.actorID, url.QueryEscape(c.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var envelope runEnvelope
	if err := c.do(req, &envelope); err != nil {
		return nil, fmt.Errorf("start run for %s: %w", username, err)
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("start run for %s: %s: %s", username, envelope.Error.Type, envelope.Error.Message)
	}
	if envelope.Data.ID == "" || envelope.Data.DefaultDatasetID == "" {
		return nil, fmt.Errorf("start run for %s: response missing run or dataset id", username)
	}
	return &Run{ID: envelope.Data.ID, DatasetID: envelope.Data.DefaultDatasetID}, nil
}

// RunStatus returns the current status string for a run.
func (c *Client) RunStatus(ctx context.Context, runID string) (string, error) {
	endpoint := fmt.Sprintf("%s/acts/%s/runs/%s?token=%s", c.baseURL, c.actorID, runID, url.QueryEscape(c.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	var envelope runEnvelope
	if err := c.do(req, &envelope); err != nil {
		return "", fmt.Errorf("run status %s: %w", runID, err)
	}
	if envelope.Error != nil {
		return "", fmt.Errorf("run status %s: %s: %s", runID, envelope.Error.Type, envelope.Error.Message)
	}
	return envelope.Data.Status, nil
}

// DatasetItems fetches the scraped profiles from a run's default dataset.
func (c *Client) DatasetItems(ctx context.Context, datasetID string) ([]ProfileItem, error) {
	endpoint := fmt.Sprintf("%s/datasets/%s/items?token=%s", c.baseURL, datasetID, url.QueryEscape(c.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var items []ProfileItem
	if err := c.do(req, &items); err != nil {
		return nil, fmt.Errorf("dataset items %s: %w", datasetID, err)
	}
	return items, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
