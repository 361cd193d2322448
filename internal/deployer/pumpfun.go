// Package deployer launches tokens on pump.fun: metadata goes to the
// pump.fun IPFS endpoint, the create transaction is built by PumpPortal,
// signed locally and submitted through Solana RPC.
package deployer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default endpoints and launch parameters.
const (
	DefaultIPFSURL        = "https://pump.fun/api/ipfs"
	DefaultPumpPortalURL  = "https://pumpportal.fun/api/trade-local"
	DefaultTimeout        = 60 * time.Second
	DefaultDevBuySOL      = 0.02
	DefaultSlippage       = 10
	DefaultPriorityFeeSOL = 0.0005
	DefaultPool           = "pump"
)

// TokenMetadata is the IPFS upload result consumed by the create
// transaction.
type TokenMetadata struct {
	Name        string
	Symbol      string
	MetadataURI string
}

// ipfsResponse is the raw pump.fun IPFS upload response.
type ipfsResponse struct {
	MetadataURI string `json:"metadataUri"`
	Metadata    struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"metadata"`
}

// PumpClient calls the pump.fun IPFS endpoint and PumpPortal.
type PumpClient struct {
	ipfsURL        string
	pumpPortalURL  string
	client         *http.Client
	devBuySOL      float64
	slippage       int
	priorityFeeSOL float64
	pool           string
}

// PumpClientOption configures PumpClient.
type PumpClientOption func(*PumpClient)

// WithIPFSURL overrides the pump.fun IPFS endpoint (used in tests).
func WithIPFSURL(u string) PumpClientOption {
	return func(c *PumpClient) {
		c.ipfsURL = u
	}
}

// WithPumpPortalURL overrides the PumpPortal trade-local endpoint.
func WithPumpPortalURL(u string) PumpClientOption {
	return func(c *PumpClient) {
		c.pumpPortalURL = u
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) PumpClientOption {
	return func(c *PumpClient) {
		c.client.Timeout = d
	}
}

// WithDevBuy sets the initial dev buy in SOL.
func WithDevBuy(sol float64) PumpClientOption {
	return func(c *PumpClient) {
		c.devBuySOL = sol
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) PumpClientOption {
	return func(c *PumpClient) {
		c.client = client
	}
}

// NewPumpClient creates a PumpClient with production defaults.
func NewPumpClient(opts ...PumpClientOption) *PumpClient {
	c := &PumpClient{
		ipfsURL:        DefaultIPFSURL,
		pumpPortalURL:  DefaultPumpPortalURL,
		client:         &http.Client{Timeout: DefaultTimeout},
		devBuySOL:      DefaultDevBuySOL,
		slippage:       DefaultSlippage,
		priorityFeeSOL: DefaultPriorityFeeSOL,
		pool:           DefaultPool,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UploadMetadata uploads the token image and metadata to pump.fun IPFS.
// The description credits the Instagram creator.
func (c *PumpClient) UploadMetadata(ctx context.Context, name, ticker, imagePath, creatorUsername string) (*TokenMetadata, error) {
	img, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer img.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, img); err != nil {
		return nil, fmt.Errorf("copy image: %w", err)
	}

	fields := map[string]string{
		"name":        name,
		"symbol":      ticker,
		"description": fmt.Sprintf("Token created by @%s via Instagram comment on Feedo3", creatorUsername),
		"showName":    "true",
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ipfsURL, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("IPFS upload failed: status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var result ipfsResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if result.MetadataURI == "" {
		return nil, fmt.Errorf("IPFS response missing metadataUri")
	}

	return &TokenMetadata{
		Name:        result.Metadata.Name,
		Symbol:      result.Metadata.Symbol,
		MetadataURI: result.MetadataURI,
	}, nil
}

// CreateTransaction asks PumpPortal for an unsigned create transaction.
// The response body is the raw serialized transaction.
func (c *PumpClient) CreateTransaction(ctx context.Context, signerPubkey, mintPubkey string, meta *TokenMetadata) ([]byte, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"publicKey": signerPubkey,
		"action":    "create",
		"tokenMetadata": map[string]string{
			"name":   meta.Name,
			"symbol": meta.Symbol,
			"uri":    meta.MetadataURI,
		},
		"mint":            mintPubkey,
		"denominatedInSol": "true",
		"amount":          c.devBuySOL,
		"slippage":        c.slippage,
		"priorityFee":     c.priorityFeeSOL,
		"pool":            c.pool,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pumpPortalURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transaction creation failed: status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty transaction response")
	}
	return body, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
