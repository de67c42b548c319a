package auth

import "net/http"

// FederatedProvider decorates an inner Provider, adding a second identity
// header (e.g. an external workspace/account identity token) alongside the
// inner provider's bearer token — the "federated" auth mode of §6.2, where a
// caller authenticates to a separate identity provider and presents both
// credentials together.
type FederatedProvider struct {
	inner      Provider
	headerName string
	headerFunc func() (string, error)
}

// NewFederatedProvider wraps inner, adding headerName computed by headerFunc
// on every request alongside whatever headers inner sets.
func NewFederatedProvider(inner Provider, headerName string, headerFunc func() (string, error)) *FederatedProvider {
	return &FederatedProvider{inner: inner, headerName: headerName, headerFunc: headerFunc}
}

func (f *FederatedProvider) AddHeaders(h http.Header) error {
	if err := f.inner.AddHeaders(h); err != nil {
		return err
	}

	value, err := f.headerFunc()
	if err != nil {
		return err
	}

	h.Set(f.headerName, value)

	return nil
}
