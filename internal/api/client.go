// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Version is sent in the User-Agent header.
var Version = "dev"

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-Id"

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// TokenSource supplies the bearer token for authenticated calls. An empty
// token means the user is logged out.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource with a fixed token.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token() string { return string(s) }

// Config holds configuration options for the backend client.
type Config struct {
	// BaseURL is the backend root, without the /api suffix.
	BaseURL string

	// Timeout bounds non-streaming requests. Streams are bounded only by
	// the caller's context.
	Timeout time.Duration

	// RequestsPerSecond and Burst configure the shared rate limiter.
	// RequestsPerSecond <= 0 disables limiting.
	RequestsPerSecond float64
	Burst             int

	// MaxResponseSize caps non-streaming response bodies.
	MaxResponseSize int64
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "http://127.0.0.1:8000",
		Timeout:           30 * time.Second,
		RequestsPerSecond: 10,
		Burst:             20,
		MaxResponseSize:   10 << 20,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the scribe backend.
type Client struct {
	config     *Config
	httpClient *http.Client
	streamHTTP *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger used for request logging.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient replaces the transport used for non-streaming calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient creates a client. A nil config uses DefaultConfig and a nil
// TokenSource behaves as logged out.
func NewClient(config *Config, tokens TokenSource, opts ...Option) *Client {
	def := DefaultConfig()
	if config == nil {
		config = def
	}
	cfg := *config
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxResponseSize <= 0 {
		cfg.MaxResponseSize = def.MaxResponseSize
	}
	if tokens == nil {
		tokens = StaticToken("")
	}

	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		if burst <= 0 {
			burst = 1
		}
	}

	c := &Client{
		config:     &cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		streamHTTP: &http.Client{},
		tokens:     tokens,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// HasToken reports whether a bearer token is available.
func (c *Client) HasToken() bool {
	return c.tokens.Token() != ""
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

type authMode int

const (
	authNone authMode = iota
	authOptional
	authRequired
)

// newRequest builds a JSON request. A required-auth request without a
// token fails with ErrUnauthorized before touching the network.
func (c *Client) newRequest(ctx context.Context, method, path string, body any, auth authMode) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, &Error{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "scribe/"+Version)
	req.Header.Set(RequestIDHeader, uuid.NewString())

	if auth != authNone {
		token := c.tokens.Token()
		switch {
		case token != "":
			req.Header.Set("Authorization", "Bearer "+token)
		case auth == authRequired:
			return nil, ErrUnauthorized
		}
	}
	return req, nil
}

// send waits for the limiter, executes req and logs the outcome.
func (c *Client) send(hc *http.Client, req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{Type: ErrTypeTimeout, Message: "rate limiter", Cause: err}
	}

	start := time.Now()
	resp, err := hc.Do(req)
	ev := c.logger.Debug().
		Str("request_id", req.Header.Get(RequestIDHeader)).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Dur("duration", time.Since(start))
	if err != nil {
		ev.Err(err).Msg("backend request failed")
		return nil, classifyTransportError(ctx, err)
	}
	ev.Int("status", resp.StatusCode).Msg("backend request")
	return resp, nil
}

// classifyTransportError maps a transport failure to an *Error.
func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return &Error{Type: ErrTypeConnection, Message: "request cancelled", Cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	return &Error{Type: ErrTypeConnection, Message: "backend unreachable", Cause: err}
}

// readBody reads at most MaxResponseSize bytes.
func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseSize+1))
	if err != nil {
		return nil, &Error{Type: ErrTypeConnection, Message: "failed to read response", Cause: err}
	}
	if int64(len(body)) > c.config.MaxResponseSize {
		return nil, &Error{Type: ErrTypeInvalidResponse, Message: "response too large"}
	}
	return body, nil
}

// doJSON executes a non-streaming call and decodes a 2xx body into out
// (which may be nil).
func (c *Client) doJSON(ctx context.Context, method, path string, in any, auth authMode, out any) error {
	req, err := c.newRequest(ctx, method, path, in, auth)
	if err != nil {
		return err
	}
	resp, err := c.send(c.httpClient, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := c.readBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return handleErrorResponse(resp.StatusCode, body, false)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}
