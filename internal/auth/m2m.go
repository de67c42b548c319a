package auth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// NewM2MProvider builds a machine-to-machine Provider backed by the OAuth
// client-credentials grant (service-principal auth, §6.2) — no user
// interaction, no token file, just cfg's TokenSource refreshing on demand.
func NewM2MProvider(ctx context.Context, cfg clientcredentials.Config, httpClient *http.Client) Provider {
	src := cfg.TokenSource(contextWithClient(ctx, httpClient))

	return newTokenBridge(src, "", nil)
}

// NewAzureServicePrincipalProvider is NewM2MProvider specialized to an Azure
// AD tenant token endpoint — Azure deployments authenticate service
// principals the same client-credentials way, just against a different
// issuer and scope.
func NewAzureServicePrincipalProvider(ctx context.Context, tenantID, clientID, clientSecret string, httpClient *http.Client) Provider {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     "https://login.microsoftonline.com/" + tenantID + "/oauth2/v2.0/token",
		Scopes:       []string{"https://azuredatabricks.net/.default"},
	}

	return NewM2MProvider(ctx, cfg, httpClient)
}

func contextWithClient(ctx context.Context, httpClient *http.Client) context.Context {
	if httpClient == nil {
		return ctx
	}

	return context.WithValue(ctx, oauth2.HTTPClient, httpClient)
}
