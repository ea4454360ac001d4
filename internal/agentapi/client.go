// ABOUTME: HTTP client for the remote agent service chat, summary and health routes
// ABOUTME: Normalizes every transport or status failure into ErrRequestFailed

package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrRequestFailed is returned for any transport failure, non-success status
// or undecodable body from the remote service.
var ErrRequestFailed = errors.New("request failed")

// maxErrorBody caps how much of a failed response body is kept for logs.
const maxErrorBody = 512

// Client talks to the remote agent service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets an overall per-request timeout. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     slog.Default().With("component", "agentapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send posts a user message to the category's chat route. threadID may be
// empty to start a new server-side conversation.
func (c *Client) Send(ctx context.Context, category Category, message, threadID string) (*ChatResponse, error) {
	r, ok := routes[category]
	if !ok {
		return nil, fmt.Errorf("%w: unknown category %q", ErrRequestFailed, category)
	}

	body, err := json.Marshal(ChatRequest{Message: message, ThreadID: threadID})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", ErrRequestFailed, err)
	}

	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, r.Send, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// InitialSummary fetches the pre-canned summary for categories that define
// one. For categories without a summary route it returns (nil, nil) without
// issuing a request.
func (c *Client) InitialSummary(ctx context.Context, category Category) (*ChatResponse, error) {
	r, ok := routes[category]
	if !ok || r.Summary == "" {
		return nil, nil
	}

	var resp ChatResponse
	if err := c.do(ctx, http.MethodGet, r.Summary, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteConversation asks the service to forget a thread. Only the status is
// inspected; the body is discarded.
func (c *Client) DeleteConversation(ctx context.Context, threadID string) error {
	if threadID == "" {
		return fmt.Errorf("%w: thread id required", ErrRequestFailed)
	}
	return c.do(ctx, http.MethodDelete, "/conversations/"+url.PathEscape(threadID), nil, nil)
}

// do executes one request. A nil out skips decoding.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: creating request: %v", ErrRequestFailed, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("agent request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %s %s: %v", ErrRequestFailed, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("agent request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrRequestFailed, method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: decoding response: %v", ErrRequestFailed, method, path, err)
	}
	return nil
}
