// Package feed provides the Instagram Graph API client used to list posts,
// list comments, and post replies.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"feedo/internal/domain"
)

// Default configuration values.
const (
	DefaultBaseURL    = "https://graph.facebook.com/v18.0"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second
	DefaultPostLimit  = 25
)

// APIError is a structured error returned by the Graph API, distinct from
// transport failures. It is not retried.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph API error %d (%s): %s", e.Code, e.Type, e.Message)
}

// Client calls the Instagram Graph API.
type Client struct {
	baseURL     string
	accessToken string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	postLimit   int
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the Graph API base URL (used in tests).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for transport errors.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithPostLimit sets how many recent posts are listed per cycle.
func WithPostLimit(n int) ClientOption {
	return func(c *Client) {
		c.postLimit = n
	}
}

// NewClient creates a new Graph API client.
func NewClient(accessToken string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		accessToken: accessToken,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		postLimit:   DefaultPostLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// graphEnvelope wraps list responses and error payloads.
type graphEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

// get performs a GET with retries and exponential backoff on transport
// errors and 429s. Graph API errors are returned as *APIError and are not
// retried.
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	params.Set("access_token", c.accessToken)
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, path, params.Encode())

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		var envelope graphEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			if resp.StatusCode != http.StatusOK {
				lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
				continue
			}
			return fmt.Errorf("unmarshal response: %w", err)
		}

		if envelope.Error != nil {
			// API errors are not retried
			return envelope.Error
		}

		if out != nil && envelope.Data != nil {
			if err := json.Unmarshal(envelope.Data, out); err != nil {
				return fmt.Errorf("unmarshal data: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// mediaItem is the raw Graph API media object.
type mediaItem struct {
	ID            string `json:"id"`
	Caption       string `json:"caption"`
	MediaType     string `json:"media_type"`
	Permalink     string `json:"permalink"`
	CommentsCount int    `json:"comments_count"`
	Timestamp     string `json:"timestamp"`
}

// ListRecentPosts lists recent media posts for the business account.
// An empty result is not an error.
func (c *Client) ListRecentPosts(ctx context.Context, accountID string) ([]*domain.Post, error) {
	params := url.Values{}
	params.Set("fields", "id,caption,media_type,media_url,timestamp,permalink,comments_count")
	params.Set("limit", fmt.Sprintf("%d", c.postLimit))

	var items []mediaItem
	if err := c.get(ctx, accountID+"/media", params, &items); err != nil {
		return nil, fmt.Errorf("list recent posts: %w", err)
	}

	posts := make([]*domain.Post, 0, len(items))
	for _, item := range items {
		posts = append(posts, &domain.Post{
			ID:           item.ID,
			Caption:      item.Caption,
			MediaType:    item.MediaType,
			Permalink:    item.Permalink,
			CommentCount: item.CommentsCount,
			Timestamp:    parseGraphTime(item.Timestamp),
		})
	}
	return posts, nil
}

// commentItem is the raw Graph API comment object.
type commentItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
	From      *struct {
		Username string `json:"username"`
	} `json:"from"`
}

// ListComments lists comments for a post. An empty result is not an error.
func (c *Client) ListComments(ctx context.Context, post *domain.Post) ([]*domain.Comment, error) {
	params := url.Values{}
	params.Set("fields", "id,text,username,timestamp,from")

	var items []commentItem
	if err := c.get(ctx, post.ID+"/comments", params, &items); err != nil {
		return nil, fmt.Errorf("list comments for %s: %w", post.ID, err)
	}

	comments := make([]*domain.Comment, 0, len(items))
	for _, item := range items {
		username := item.Username
		if username == "" && item.From != nil {
			username = item.From.Username
		}
		comments = append(comments, &domain.Comment{
			ID:            item.ID,
			Text:          item.Text,
			Username:      username,
			Timestamp:     parseGraphTime(item.Timestamp),
			PostID:        post.ID,
			PostPermalink: post.Permalink,
		})
	}
	return comments, nil
}

// replyResponse is the raw Graph API reply creation response.
type replyResponse struct {
	ID    string    `json:"id"`
	Error *APIError `json:"error"`
}

// Reply posts a reply against a comment ID and returns the reply ID.
// Replies are not retried: a transport failure after the server accepted
// the write would duplicate the reply.
func (c *Client) Reply(ctx context.Context, commentID, message string) (string, error) {
	form := url.Values{}
	form.Set("message", message)
	form.Set("access_token", c.accessToken)

	endpoint := fmt.Sprintf("%s/%s/replies", c.baseURL, commentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var result replyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("unmarshal response (status %d): %w", resp.StatusCode, err)
	}
	if result.Error != nil {
		return "", result.Error
	}
	if result.ID == "" {
		return "", fmt.Errorf("reply response missing id (status %d)", resp.StatusCode)
	}
	return result.ID, nil
}

// parseGraphTime converts a Graph API timestamp to Unix milliseconds.
// Returns 0 for unparseable input; callers treat the timestamp as advisory.
func parseGraphTime(s string) int64 {
	if s == "" {
		return 0
	}
	// Graph API uses ISO 8601 with numeric zone, e.g. 2024-01-01T12:00:00+0000
	for _, layout := range []string{"2006-01-02T15:04:05-0700", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}
