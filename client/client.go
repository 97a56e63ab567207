// Package client is the Go API client for the self-care guide
// gateway. It owns the retry/backoff policy and the localized error
// formatting that sit on the caller's side of the HTTP boundary.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/asofia888/self-care-guide/models"
)

// Client calls the gateway endpoints with automatic retry.
type Client struct {
	baseURL string
	hc      *http.Client
	cfg     RetryConfig
	sleeper Sleeper
	rng     *rand.Rand
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithRetryConfig replaces the retry policy.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) { c.cfg = cfg }
}

// WithSleeper replaces the backoff sleeper. Tests use a recording
// fake so no wall-clock time passes.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleeper = s }
}

// WithRand replaces the jitter source for deterministic tests.
func WithRand(rng *rand.Rand) Option {
	return func(c *Client) { c.rng = rng }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{},
		cfg:     DefaultRetryConfig(),
		sleeper: realSleeper{},
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze submits a health profile and returns the generated guidance.
func (c *Client) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	body, err := c.Do(ctx, "/api/analysis", req)
	if err != nil {
		return nil, err
	}
	var result models.AnalysisResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis result: %w", err)
	}
	return &result, nil
}

// Compendium looks up herbs, formulas and supplements by free text.
func (c *Client) Compendium(ctx context.Context, req models.CompendiumRequest) (*models.CompendiumResult, error) {
	body, err := c.Do(ctx, "/api/compendium", req)
	if err != nil {
		return nil, err
	}
	var result models.CompendiumResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode compendium result: %w", err)
	}
	return &result, nil
}

// Do POSTs the payload to path, retrying transient failures per the
// retry policy, and returns the raw response body of the first 2xx.
func (c *Client) Do(ctx context.Context, path string, payload any) ([]byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var body []byte
	err = retry(ctx, c.cfg, c.sleeper, c.rng, func(ctx context.Context) error {
		var attemptErr error
		body, attemptErr = c.post(ctx, path, jsonBody)
		return attemptErr
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// post performs one HTTP attempt. Non-2xx responses come back as
// *models.APIError carrying the gateway's error envelope.
func (c *Client) post(ctx context.Context, path string, jsonBody []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		// transport failures carry no status; classified by message
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(resp.Body); err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		return buf.Bytes(), nil
	}

	apiErr := &models.APIError{
		Status:  resp.StatusCode,
		Code:    models.CodeInternal,
		Message: fmt.Sprintf("request failed with status %d", resp.StatusCode),
	}
	var envelope struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != "" {
		apiErr.Message = envelope.Error
		apiErr.Details = envelope.Details
	}
	return nil, apiErr
}
