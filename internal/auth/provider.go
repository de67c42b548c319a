// Package auth implements the driver's authentication providers — PAT,
// OAuth U2M (device code), OAuth M2M (client credentials), and a
// Federated decorator — generalizing the teacher's internal/graph/auth.go
// token-bridge pattern from "one fixed OAuth app" to a pluggable Provider
// interface selected by DSN/connection-option (§6.2).
package auth

import "net/http"

// Provider injects whatever headers a request needs to authenticate against
// the warehouse endpoint. Implementations must be safe for concurrent use:
// the transport Client may call AddHeaders from multiple goroutines.
type Provider interface {
	// AddHeaders sets (not merely adds) the Authorization header and any
	// other auth-related headers on h, refreshing an underlying token if
	// necessary. Must not block longer than the caller's context allows —
	// implementations that perform network I/O take a context via their own
	// constructor-time http.Client timeout, mirroring the teacher's
	// tokenBridge which relies on the oauth2.TokenSource's own HTTP client.
	AddHeaders(h http.Header) error
}

// ProviderFunc adapts a plain function to a Provider.
type ProviderFunc func(h http.Header) error

func (f ProviderFunc) AddHeaders(h http.Header) error { return f(h) }
