// Package backend implements ports.Backend over the computation service's
// HTTP API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/tooldeck/internal/logging"
	"github.com/aretw0/tooldeck/pkg/domain"
)

const (
	optionsPath = "/api/v1/tools-options"
	computePath = "/api/v1/chat-tools"

	// DefaultTimeout bounds a single backend request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes int64 = 4 << 20
)

// StatusError reports a backend answer with a non-OK status.
// It satisfies errors.Is(err, domain.ErrRequestFailed).
type StatusError struct {
	Op         domain.RequestOp
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s request failed: status %d", e.Op, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return domain.ErrRequestFailed
}

// Client talks to the backend at a base URL.
type Client struct {
	baseURL string
	http    *http.Client
	maxBody int64
	logger  *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithMaxBodyBytes caps response body reads.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a backend client. baseURL is the API_BASE, without the /api/v1 suffix.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		maxBody: DefaultMaxBodyBytes,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API base.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type optionsResponse struct {
	Options map[string][]any `json:"options"`
}

type computeResponse struct {
	Response domain.ResultPayload `json:"response"`
}

// FetchOptions issues GET /api/v1/tools-options?tool_name=<toolID>.
func (c *Client) FetchOptions(ctx context.Context, toolID string) (domain.ToolOptions, error) {
	endpoint := c.baseURL + optionsPath + "?" + url.Values{"tool_name": {toolID}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build options request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var out optionsResponse
	if err := c.do(req, domain.OpFetchOptions, &out); err != nil {
		return nil, err
	}

	opts := make(domain.ToolOptions, len(out.Options))
	for key, values := range out.Options {
		list := make([]string, 0, len(values))
		for _, v := range values {
			list = append(list, domain.Stringify(v))
		}
		opts[key] = list
	}
	return opts, nil
}

// Compute issues POST /api/v1/chat-tools?tool=<toolID> with body as JSON.
func (c *Client) Compute(ctx context.Context, toolID string, body any) (domain.ResultPayload, error) {
	endpoint := c.baseURL + computePath + "?" + url.Values{"tool": {toolID}}.Encode()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build results request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var out computeResponse
	if err := c.do(req, domain.OpFetchResults, &out); err != nil {
		return nil, err
	}
	if out.Response == nil {
		out.Response = domain.ResultPayload{}
	}
	return out.Response, nil
}

func (c *Client) do(req *http.Request, op domain.RequestOp, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrRequestFailed, op, err)
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, c.maxBody)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused; the error body is not parsed.
		_, _ = io.Copy(io.Discard, body)
		c.logger.Debug("backend answered with non-OK status",
			"op", op,
			"url", req.URL.Redacted(),
			"status", resp.StatusCode,
		)
		return &StatusError{Op: op, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %v", domain.ErrRequestFailed, op, err)
	}
	return nil
}

// HTTPStatus returns the status code the backend answered with.
func (e *StatusError) HTTPStatus() int {
	return e.StatusCode
}
