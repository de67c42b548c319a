// Package warehouseconfig resolves driver connection options from a DSN,
// explicit functional Options, and environment-variable fallbacks, adapted
// from the teacher's internal/config layered-defaults structure
// (config.go/defaults.go/env.go) but reshaped around a single DSN-parsed
// Config instead of a TOML file — a warehouse connection has no on-disk
// profile, only per-connect options (§6.1, §6.2).
package warehouseconfig

import "time"

// AuthMode selects which auth.Provider the warehouse package constructs.
type AuthMode string

const (
	AuthPAT                   AuthMode = "pat"
	AuthOAuthU2M              AuthMode = "oauth-u2m"
	AuthOAuthM2M              AuthMode = "oauth-m2m"
	AuthAzureServicePrincipal AuthMode = "azure-sp"
	AuthFederated             AuthMode = "federated"
)

// Backend selects the wire protocol variant.
type Backend string

const (
	BackendThrift Backend = "thrift"
	BackendSEA    Backend = "sea"
)

// Config is the fully-resolved set of options governing one connection, the
// analogue of the teacher's Config/Profile pair collapsed to one level since
// a warehouse connection has no multi-profile concept.
type Config struct {
	Host             string
	HTTPPath         string
	Port             int
	Catalog          string
	Schema           string
	SessionConfig    map[string]string

	Backend Backend
	Auth    AuthMode

	Token        string // PAT
	ClientID     string // OAuth M2M / Azure SP
	ClientSecret string
	AzureTenantID string
	TokenCachePath string

	UseCloudFetch bool
	LZ4Compression bool
	MaxDownloadThreads int
	ParamStyle     string // "named" (default), "positional", "inline"
	UseInlineParams bool

	SocketTimeout time.Duration
	RetryStopAfterAttempts int
	RetryStopAfterDuration time.Duration

	UserAgentEntry string
	QueryTags      map[string]string
}

// Option mutates a Config at construction time, the idiomatic-Go substitute
// for the Python driver's **kwargs connect() signature.
type Option func(*Config)

func WithCatalog(catalog string) Option  { return func(c *Config) { c.Catalog = catalog } }
func WithSchema(schema string) Option    { return func(c *Config) { c.Schema = schema } }
func WithAccessToken(tok string) Option  { return func(c *Config) { c.Token = tok; c.Auth = AuthPAT } }
func WithCloudFetch(enabled bool) Option { return func(c *Config) { c.UseCloudFetch = enabled } }
func WithLZ4Compression(enabled bool) Option {
	return func(c *Config) { c.LZ4Compression = enabled }
}
func WithBackend(b Backend) Option { return func(c *Config) { c.Backend = b } }
func WithSocketTimeout(d time.Duration) Option {
	return func(c *Config) { c.SocketTimeout = d }
}
func WithSessionConfig(kv map[string]string) Option {
	return func(c *Config) { c.SessionConfig = kv }
}
func WithQueryTags(tags map[string]string) Option { return func(c *Config) { c.QueryTags = tags } }
func WithParamStyle(style string) Option          { return func(c *Config) { c.ParamStyle = style } }
