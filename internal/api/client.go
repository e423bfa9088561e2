// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api is the HTTP client for the document processing backend. It
// wraps the auth, document, search, and health endpoints behind typed
// methods and converts backend failures into *Error values.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pdiddy/idp-client/internal/httputil"
	"github.com/pdiddy/idp-client/internal/metrics"
	"github.com/pdiddy/idp-client/internal/resilience"
	"github.com/pdiddy/idp-client/pkg/types"
)

const (
	requestIDHeader  = "X-Request-Id"
	defaultUserAgent = "idp/0.1"
	defaultTimeout   = 30 * time.Second
)

// TokenSource supplies the bearer token for authenticated calls. An empty
// token means the request goes out without an Authorization header.
type TokenSource interface {
	Token() string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics records per-operation request metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithExecutor replaces the resilience executor used for reads.
func WithExecutor(e *resilience.Executor) Option {
	return func(c *Client) { c.executor = e }
}

// WithUploadLimit throttles uploads to limit per window. A non-positive
// limit disables throttling.
func WithUploadLimit(limit int, window time.Duration) Option {
	return func(c *Client) {
		if limit <= 0 || window <= 0 {
			c.uploadLimiter = nil
			return
		}
		c.uploadLimiter = rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)
	}
}

// Client talks to the backend REST API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	userAgent  string
	maxRetries int
	httpClient *http.Client

	executor      *resilience.Executor
	metrics       *metrics.Metrics
	uploadLimiter *rate.Limiter

	mu     sync.RWMutex
	tokens TokenSource
}

// New returns a Client for cfg.BaseURL. The base URL must be absolute.
func New(cfg types.APIConfig, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	c := &Client{
		baseURL:    base,
		userAgent:  ua,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: timeout},
		executor:   resilience.NewExecutor(resilience.FromTypes(cfg.Resilience)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetTokenSource installs the source of bearer tokens. The session manager
// is constructed with the client, so the source is attached afterwards.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(requestIDHeader, uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

// send performs req, retrying 429/503 per httputil, and decodes a 2xx JSON
// body into out when out is non-nil. okStatus lists extra non-2xx codes
// whose body should still be decoded; accepting 503 disables retries.
func (c *Client) send(ctx context.Context, operation string, req *http.Request, out any, okStatus ...int) error {
	retries := c.maxRetries
	if isOK(http.StatusServiceUnavailable, okStatus) {
		retries = -1
	}
	return c.do(ctx, operation, req, retries, out, okStatus...)
}

func (c *Client) do(ctx context.Context, operation string, req *http.Request, retries int, out any, okStatus ...int) error {
	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, retries)
	if err != nil {
		c.metrics.ObserveRequest(operation, 0, time.Since(start))
		return fmt.Errorf("%s request: %w", operation, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveRequest(operation, resp.StatusCode, time.Since(start))

	if !isOK(resp.StatusCode, okStatus) {
		return newError(operation, resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", operation, err)
	}
	return nil
}

func isOK(code int, extra []int) bool {
	if code >= 200 && code < 300 {
		return true
	}
	for _, c := range extra {
		if c == code {
			return true
		}
	}
	return false
}

// getJSON performs an idempotent GET through the resilience executor. The
// executor owns retries for reads, so each attempt is a single request.
func (c *Client) getJSON(ctx context.Context, operation, path string, out any, okStatus ...int) error {
	return c.executor.Execute(ctx, operation, func(ctx context.Context) error {
		req, err := c.newRequest(ctx, http.MethodGet, path, nil, "")
		if err != nil {
			return err
		}
		return c.do(ctx, operation, req, -1, out, okStatus...)
	}, classify)
}

func (c *Client) postJSON(ctx context.Context, operation, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", operation, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body), "application/json")
	if err != nil {
		return err
	}
	return c.send(ctx, operation, req, out)
}

func (c *Client) postForm(ctx context.Context, operation, path string, form url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return err
	}
	return c.send(ctx, operation, req, out)
}
