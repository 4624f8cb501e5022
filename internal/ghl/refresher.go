package ghl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/leadwire/ghl-relay/internal/tokenstore"
)

// Refresher exchanges a refresh token for a new access/refresh pair at the
// provider's token endpoint.
type Refresher struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// NewRefresher creates a Refresher for the given token endpoint and client
// credentials. If httpClient is nil a client with a 30 second timeout is used.
func NewRefresher(tokenURL, clientID, clientSecret string, httpClient *http.Client) *Refresher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Refresher{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
	}
}

// Refresh performs a grant_type=refresh_token exchange. Any transport error,
// non-2xx response, or response missing either token yields *RefreshError.
// Refresh never touches the token store; persistence happens in TokenManager
// inside the coalesced critical section.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (tokenstore.TokenPair, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {r.clientID},
		"client_secret": {r.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return tokenstore.TokenPair{}, &RefreshError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return tokenstore.TokenPair{}, &RefreshError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return tokenstore.TokenPair{}, &RefreshError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return tokenstore.TokenPair{}, &RefreshError{
			Err: fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, body),
		}
	}

	var parsed struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return tokenstore.TokenPair{}, &RefreshError{Err: fmt.Errorf("decoding token response: %w", err)}
	}
	if parsed.AccessToken == "" || parsed.RefreshToken == "" {
		return tokenstore.TokenPair{}, &RefreshError{
			Err: errors.New("token response missing access_token or refresh_token"),
		}
	}

	return tokenstore.TokenPair{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
	}, nil
}
