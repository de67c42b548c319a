package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DeviceAuthResult is what the device-code flow's first leg returns for the
// caller (typically a CLI) to display to the user.
type DeviceAuthResult struct {
	VerificationURI         string
	VerificationURIComplete string
	UserCode                string
	ExpiresIn               time.Duration
}

// Login runs the OAuth 2.0 device authorization grant (RFC 8628) against
// cfg, blocking until the user completes the browser step or ctx is
// canceled. Mirrors the teacher's graph.Login/doLogin shape: a
// display-to-user step followed by a polling loop, but generalized from
// Microsoft's Graph-specific device endpoint to an arbitrary OAuth issuer.
func Login(ctx context.Context, cfg *oauth2.Config, httpClient *http.Client, onPrompt func(DeviceAuthResult)) (*oauth2.Token, error) {
	da, err := requestDeviceCode(ctx, httpClient, cfg)
	if err != nil {
		return nil, fmt.Errorf("sqlwarehouse: requesting device code: %w", err)
	}

	if onPrompt != nil {
		onPrompt(*da.result)
	}

	return pollForToken(ctx, httpClient, cfg, da)
}

type deviceCodeResponse struct {
	result         *DeviceAuthResult
	deviceCode     string
	pollInterval   time.Duration
}

func requestDeviceCode(ctx context.Context, httpClient *http.Client, cfg *oauth2.Config) (*deviceCodeResponse, error) {
	form := url.Values{
		"client_id": {cfg.ClientID},
		"scope":     {strings.Join(cfg.Scopes, " ")},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint.DeviceAuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		DeviceCode              string `json:"device_code"`
		UserCode                string `json:"user_code"`
		VerificationURI         string `json:"verification_uri"`
		VerificationURIComplete string `json:"verification_uri_complete"`
		ExpiresIn               int    `json:"expires_in"`
		Interval                int    `json:"interval"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding device_authorization response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("device_authorization returned HTTP %d", resp.StatusCode)
	}

	interval := body.Interval
	if interval <= 0 {
		interval = 5
	}

	return &deviceCodeResponse{
		result: &DeviceAuthResult{
			VerificationURI:         body.VerificationURI,
			VerificationURIComplete: body.VerificationURIComplete,
			UserCode:                body.UserCode,
			ExpiresIn:               time.Duration(body.ExpiresIn) * time.Second,
		},
		deviceCode:   body.DeviceCode,
		pollInterval: time.Duration(interval) * time.Second,
	}, nil
}

// pollForToken repeatedly exchanges the device code for a token, honoring
// authorization_pending/slow_down per RFC 8628 §3.5, the same "retry the
// poll with backoff until the user completes the browser step" loop shape as
// the teacher's doLogin.
func pollForToken(ctx context.Context, httpClient *http.Client, cfg *oauth2.Config, da *deviceCodeResponse) (*oauth2.Token, error) {
	interval := da.pollInterval

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}

		form := url.Values{
			"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
			"device_code": {da.deviceCode},
			"client_id":   {cfg.ClientID},
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint.TokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}

		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		var body struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
			TokenType    string `json:"token_type"`
			ExpiresIn    int    `json:"expires_in"`
			Error        string `json:"error"`
		}

		decErr := json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()

		if decErr != nil {
			return nil, fmt.Errorf("decoding token response: %w", decErr)
		}

		switch body.Error {
		case "":
			return &oauth2.Token{
				AccessToken:  body.AccessToken,
				RefreshToken: body.RefreshToken,
				TokenType:    body.TokenType,
				Expiry:       time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
			}, nil
		case "authorization_pending":
			continue
		case "slow_down":
			interval += 5 * time.Second
			continue
		default:
			return nil, fmt.Errorf("sqlwarehouse: device flow failed: %s", body.Error)
		}
	}
}
