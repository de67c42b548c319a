// Package warehouse implements the top-level driver surface (§4.6): Session
// (a single authenticated connection to one SQL warehouse endpoint) and
// Cursor (the DB-API-shaped statement/result surface), wiring together
// internal/transport, internal/auth, internal/thrift, internal/sea,
// internal/result, internal/params, and internal/warehouseconfig. Grounded
// on the teacher's root package: NewDriveSession's lazy-token/lazy-client
// construction (drive_session.go) generalized from "one drive, one token
// file" to "one warehouse session, one backend client".
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/databricks/sqlwarehouse-go/internal/auth"
	"github.com/databricks/sqlwarehouse-go/internal/backend"
	"github.com/databricks/sqlwarehouse-go/internal/sea"
	"github.com/databricks/sqlwarehouse-go/internal/telemetry"
	"github.com/databricks/sqlwarehouse-go/internal/thrift"
	"github.com/databricks/sqlwarehouse-go/internal/transport"
	"github.com/databricks/sqlwarehouse-go/internal/warehouseconfig"
)

// Session holds the authenticated backend client and the resolved server
// session identity for one logical connection. It opens the server-side
// session lazily, on the first Cursor operation that needs it, per §4.6.
type Session struct {
	cfg *warehouseconfig.Config

	rpcClient      backend.Client
	downloadClient *transport.Client
	rawHTTPClient  *http.Client
	logger         *slog.Logger
	telemetry      *telemetry.Breaker

	mu        sync.Mutex
	sessionID backend.SessionID
	opened    bool
	closed    bool
}

// Option configures a Session at Open time, beyond what warehouseconfig.Config
// already resolves — e.g. supplying an externally-constructed auth.Provider
// for flows (U2M, federated) the config layer cannot build unattended.
type Option func(*sessionOptions)

type sessionOptions struct {
	authProvider      auth.Provider
	httpClient        *http.Client
	logger            *slog.Logger
	telemetryUploader telemetry.Uploader
}

// WithAuthProvider supplies an already-constructed auth.Provider, required
// for the oauth-m2m, oauth-u2m (interactive device-code flow) and federated
// auth modes, which buildAuthProvider does not construct.
func WithAuthProvider(p auth.Provider) Option {
	return func(o *sessionOptions) { o.authProvider = p }
}

// WithHTTPClient overrides the *http.Client used for both RPC and cloud-fetch
// transport (proxy/TLS configuration, custom transports for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(o *sessionOptions) { o.httpClient = c }
}

// WithLogger overrides the default (slog.Default()) logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *sessionOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTelemetryUploader enables best-effort telemetry flushing through a
// circuit breaker (§4.7); omitted by default since telemetry upload
// internals are out of scope beyond this boundary.
func WithTelemetryUploader(u telemetry.Uploader) Option {
	return func(o *sessionOptions) { o.telemetryUploader = u }
}

// Open builds a Session from a resolved Config. It does not contact the
// server — the backend RPC client and auth provider are constructed
// eagerly, but OpenSession is deferred to the first Cursor operation
// (ensureOpen), matching §4.6's "opens lazily on first use."
func Open(cfg *warehouseconfig.Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sqlwarehouse: invalid config: %w", err)
	}

	o := &sessionOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	authProvider := o.authProvider

	if authProvider == nil {
		built, err := buildAuthProvider(cfg, o.httpClient)
		if err != nil {
			return nil, err
		}

		authProvider = built
	}

	scheme := "https://"
	baseURL := fmt.Sprintf("%s%s", scheme, cfg.Host)

	rpcTransport := transport.NewClient(baseURL, o.httpClient, authProvider,
		transport.WithLogger(o.logger))
	downloadTransport := transport.NewClient("", o.httpClient, nil,
		transport.WithLogger(o.logger))

	var client backend.Client

	switch cfg.Backend {
	case warehouseconfig.BackendSEA:
		client = sea.NewClient(rpcTransport, cfg.HTTPPath)
	default:
		client = thrift.NewClient(rpcTransport, cfg.HTTPPath)
	}

	var breaker *telemetry.Breaker
	if o.telemetryUploader != nil {
		breaker = telemetry.NewBreaker(o.telemetryUploader, o.logger)
	}

	rawHTTPClient := o.httpClient
	if rawHTTPClient == nil {
		rawHTTPClient = http.DefaultClient
	}

	return &Session{
		cfg:            cfg,
		rpcClient:      client,
		downloadClient: downloadTransport,
		rawHTTPClient:  rawHTTPClient,
		logger:         o.logger,
		telemetry:      breaker,
	}, nil
}

// stagingHTTPClient returns the plain *http.Client used for presigned-URL
// staging transfers (§4.6) — these go straight to cloud storage, never
// through internal/transport's Databricks-auth/retry wrapper.
func (s *Session) stagingHTTPClient() *http.Client {
	return s.rawHTTPClient
}

// buildAuthProvider constructs a non-interactive auth.Provider from Config
// for PAT and Azure service principal auth. oauth-m2m, oauth-u2m and
// federated are rejected with an error: their provider must be supplied via
// WithAuthProvider.
func buildAuthProvider(cfg *warehouseconfig.Config, httpClient *http.Client) (auth.Provider, error) {
	switch cfg.Auth {
	case warehouseconfig.AuthPAT, "":
		if cfg.Token == "" {
			return nil, &backend.Error{Message: "sqlwarehouse: access token required for pat auth", Err: backend.ErrInterface}
		}

		return auth.NewPATProvider(cfg.Token), nil
	case warehouseconfig.AuthAzureServicePrincipal:
		return auth.NewAzureServicePrincipalProvider(
			context.Background(), cfg.AzureTenantID, cfg.ClientID, cfg.ClientSecret, httpClient), nil
	case warehouseconfig.AuthOAuthM2M, warehouseconfig.AuthOAuthU2M, warehouseconfig.AuthFederated:
		return nil, &backend.Error{
			Message: fmt.Sprintf("sqlwarehouse: auth mode %q requires an externally-built provider via WithAuthProvider", cfg.Auth),
			Err:     backend.ErrInterface,
		}
	default:
		return nil, &backend.Error{Message: fmt.Sprintf("sqlwarehouse: unknown auth mode %q", cfg.Auth), Err: backend.ErrInterface}
	}
}

// ensureOpen opens the server-side session on first use, idempotent and
// safe to call from every Cursor operation.
func (s *Session) ensureOpen(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &backend.Error{Message: "sqlwarehouse: session is closed", Err: backend.ErrSessionClosed}
	}

	if s.opened {
		return nil
	}

	id, err := s.rpcClient.OpenSession(ctx, s.cfg.Catalog, s.cfg.Schema, s.cfg.SessionConfig)
	if err != nil {
		return err
	}

	s.sessionID = id
	s.opened = true

	return nil
}

// Ping opens the server-side session if it isn't already, surfacing
// connectivity/auth failures immediately rather than on the first query —
// the behavior database/sql/driver.Pinger expects from Conn.Ping.
func (s *Session) Ping(ctx context.Context) error {
	return s.ensureOpen(ctx)
}

// NewCursor returns a fresh Cursor bound to this Session. A Session may have
// any number of Cursors, but each Cursor is not itself safe for concurrent
// use (§5) except for Cancel.
func (s *Session) NewCursor() *Cursor {
	return &Cursor{
		session:   s,
		arraysize: defaultArraySize,
	}
}

// Close closes the server-side session if one was opened. Idempotent and
// tolerant of the server reporting "already closed" (§4.6).
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	if s.telemetry != nil {
		s.telemetry.Flush(ctx, nil)
	}

	if !s.opened {
		return nil
	}

	err := s.rpcClient.CloseSession(ctx, s.sessionID)
	if err != nil && isAlreadyClosed(err) {
		return nil
	}

	return err
}

// isAlreadyClosed reports whether err is a RequestError carrying HTTP 404 —
// §4.7's "close-session/close-command treat 404 as already closed."
func isAlreadyClosed(err error) bool {
	var be *backend.Error
	if !errors.As(err, &be) {
		return false
	}

	code, ok := be.Context["http-code"]
	if !ok {
		return false
	}

	n, ok := code.(int)

	return ok && n == 404
}
