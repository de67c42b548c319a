// Package transport implements the HTTP transport shared by the Thrift and
// SEA backend variants: header injection via an AuthProvider and the
// command-type-aware retry policy over a caller-supplied *http.Client
// (http.DefaultClient when none is given).
// Connection pooling, TLS and proxy behaviour are whatever that *http.Client
// provides; this package configures none of them and has no proxy
// authentication support.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/databricks/sqlwarehouse-go/internal/auth"
	"github.com/databricks/sqlwarehouse-go/internal/backend"
)

// defaultUserAgent identifies the driver to the server. Overridable via
// WithUserAgent.
const defaultUserAgent = "sqlwarehouse-go/0.1"

// Response is the transport-neutral result of a request.
type Response struct {
	Status  int
	Headers http.Header
	Data    []byte
}

// RequestOpts customizes a single Request call.
type RequestOpts struct {
	ContentType string // e.g. "application/x-thrift" or "application/json"; empty = no body
	CommandType backend.CommandType
	ExtraHeaders http.Header
}

// Client executes HTTP requests against one warehouse endpoint with
// pooled connections, auth header injection, and retry (§4.1).
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       auth.Provider
	logger     *slog.Logger
	userAgent  string
	retry      *RetryPolicy

	// sleepFunc waits between retries; overridden in tests to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(ua string) Option { return func(c *Client) { c.userAgent = ua } }

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p *RetryPolicy) Option { return func(c *Client) { c.retry = p } }

// WithLogger overrides the default (slog.Default()) logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a transport Client. httpClient may be nil (defaults to
// http.DefaultClient); authProvider may be nil for pre-authenticated
// (cloud-fetch) use via RequestPreAuth.
func NewClient(baseURL string, httpClient *http.Client, authProvider auth.Provider, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		auth:       authProvider,
		logger:     slog.Default(),
		userAgent:  defaultUserAgent,
		retry:      DefaultRetryPolicy(),
		sleepFunc:  timeSleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Request executes an authenticated request with retry per the configured
// RetryPolicy (§4.1 "request").
func (c *Client) Request(ctx context.Context, method, path string, body []byte, opts RequestOpts) (*Response, error) {
	return c.do(ctx, method, c.baseURL+path, body, opts, true)
}

// RequestContext behaves like Request but additionally returns a release
// closure the caller must invoke when done with the response — the Go
// analogue of a context-managed connection scope (§4.1 "request_context").
// The HTTP response body is already fully drained into Response.Data, so
// release is a no-op today; it exists so call sites have a stable shape if a
// future streaming response path needs explicit release.
func (c *Client) RequestContext(
	ctx context.Context, method, path string, body []byte, opts RequestOpts,
) (*Response, func(), error) {
	resp, err := c.Request(ctx, method, path, body, opts)

	return resp, func() {}, err
}

// RequestPreAuth executes a GET against an already-authenticated URL (e.g. a
// cloud-fetch presigned link) without adding an Authorization header, still
// subject to retry. Used by the result pipeline's downloader.
func (c *Client) RequestPreAuth(ctx context.Context, url string) (*Response, error) {
	return c.do(ctx, http.MethodGet, url, nil, RequestOpts{}, false)
}

func (c *Client) do(
	ctx context.Context, method, url string, body []byte, opts RequestOpts, authenticate bool,
) (*Response, error) {
	var attempt int

	first := time.Now()

	for {
		resp, err := c.doOnce(ctx, method, url, body, opts, authenticate)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backend.NewRequestError(
					fmt.Sprintf("sqlwarehouse: request canceled: %v", ctx.Err()), method, "", "", 0)
			}

			decision := c.retry.Decide(Decision{
				StatusCode:  0,
				Method:      method,
				CommandType: opts.CommandType,
				History:     RetryHistory{Attempt: attempt, FirstAttempt: first},
			})
			if !decision.Retry {
				return nil, wrapRequestErr(err, method, attempt)
			}

			if sleepErr := c.sleepFunc(ctx, decision.Delay); sleepErr != nil {
				return nil, backend.NewRequestError(
					fmt.Sprintf("sqlwarehouse: request canceled during backoff: %v", sleepErr), method, "", "", 0)
			}

			attempt++

			continue
		}

		if resp.Status >= 200 && resp.Status < 300 {
			return resp, nil
		}

		decision := c.retry.Decide(Decision{
			StatusCode:   resp.Status,
			Method:       method,
			RetryAfter:   resp.Headers.Get("Retry-After"),
			CommandType:  opts.CommandType,
			History:      RetryHistory{Attempt: attempt, FirstAttempt: first},
		})

		if !decision.Retry {
			return nil, terminalHTTPError(method, resp)
		}

		c.logger.Warn("retrying after HTTP error",
			slog.String("method", method),
			slog.Int("status", resp.Status),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", decision.Delay),
		)

		if sleepErr := c.sleepFunc(ctx, decision.Delay); sleepErr != nil {
			return nil, backend.NewRequestError(
				fmt.Sprintf("sqlwarehouse: request canceled during backoff: %v", sleepErr), method, "", "", 0)
		}

		attempt++
	}
}

func (c *Client) doOnce(
	ctx context.Context, method, url string, body []byte, opts RequestOpts, authenticate bool,
) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("sqlwarehouse: building request: %w", err)
	}

	if authenticate && c.auth != nil {
		if err := c.auth.AddHeaders(req.Header); err != nil {
			return nil, fmt.Errorf("sqlwarehouse: obtaining auth headers: %w", err)
		}
	}

	req.Header.Set("User-Agent", c.userAgent)

	if opts.ContentType != "" {
		req.Header.Set("Content-Type", opts.ContentType)
	}

	for k, vals := range opts.ExtraHeaders {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sqlwarehouse: reading response body: %w", err)
	}

	return &Response{Status: resp.StatusCode, Headers: resp.Header, Data: data}, nil
}

func wrapRequestErr(err error, method string, attempt int) *backend.Error {
	e := backend.NewRequestError(
		fmt.Sprintf("sqlwarehouse: %s failed after %d attempts: %v", method, attempt+1, err),
		method, "", "", 0)
	e.Context["original-exception"] = err.Error()

	return e
}

// terminalHTTPError builds the RequestError carrying the last observed HTTP
// status, per §4.1's error-propagation rule.
func terminalHTTPError(method string, resp *Response) *backend.Error {
	return backend.NewRequestError(
		fmt.Sprintf("sqlwarehouse: %s failed with HTTP %d: %s", method, resp.Status, string(resp.Data)),
		method, "", "", resp.Status)
}

func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
