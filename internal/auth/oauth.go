package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"github.com/databricks/sqlwarehouse-go/internal/tokenfile"
)

// tokenBridge adapts an oauth2.TokenSource — which returns (*oauth2.Token,
// error) — into the Provider shape, persisting a refreshed token via
// tokenfile whenever the underlying source rotates it. This mirrors the
// teacher's internal/graph/auth.go tokenBridge exactly, generalized from a
// fixed Graph OAuth app to any warehouse OAuth flow (device code or
// client-credentials).
type tokenBridge struct {
	mu     sync.Mutex
	src    oauth2.TokenSource
	last   string // last token AccessToken seen, to detect rotation cheaply
	onSave func(tok *oauth2.Token) error
}

// newTokenBridge wraps src. If tokenPath is non-empty, a refreshed token is
// persisted there via tokenfile.Save, mirroring oauthConfig's
// OnTokenChange hook.
func newTokenBridge(src oauth2.TokenSource, tokenPath string, meta map[string]string) *tokenBridge {
	b := &tokenBridge{src: src}

	if tokenPath != "" {
		b.onSave = func(tok *oauth2.Token) error {
			return tokenfile.Save(tokenPath, tok, meta)
		}
	}

	return b
}

func (b *tokenBridge) AddHeaders(h http.Header) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tok, err := b.src.Token()
	if err != nil {
		return fmt.Errorf("sqlwarehouse: oauth token refresh failed: %w", err)
	}

	if tok.AccessToken != b.last {
		b.last = tok.AccessToken

		if b.onSave != nil {
			if saveErr := b.onSave(tok); saveErr != nil {
				return fmt.Errorf("sqlwarehouse: persisting refreshed token: %w", saveErr)
			}
		}
	}

	tok.SetAuthHeader(&http.Request{Header: h})

	return nil
}

// NewU2MProvider builds a Provider from an already-established user token
// (obtained via the device-code flow, auth.Login in device.go) that will be
// kept fresh by cfg's TokenSource and persisted back to
// tokenPath on each rotation, exactly as the teacher persists refreshed
// Graph tokens.
func NewU2MProvider(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token, tokenPath string, meta map[string]string) Provider {
	return newTokenBridge(cfg.TokenSource(ctx, tok), tokenPath, meta)
}
