package auth

import "net/http"

// PATProvider authenticates with a static personal access token — the
// simplest of the §6.2 auth modes, analogous to the teacher's legacy
// bare-token path before OAuth was added.
type PATProvider struct {
	token string
}

// NewPATProvider builds a Provider from a pre-issued token. The token is
// never logged.
func NewPATProvider(token string) *PATProvider {
	return &PATProvider{token: token}
}

func (p *PATProvider) AddHeaders(h http.Header) error {
	h.Set("Authorization", "Bearer "+p.token)

	return nil
}
