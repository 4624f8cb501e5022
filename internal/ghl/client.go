package ghl

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultBaseURL is the GHL business API.
	DefaultBaseURL = "https://services.leadconnectorhq.com"

	// apiVersion is the GHL API version header sent with every request.
	apiVersion = "2021-04-15"
)

// Client issues authenticated requests against the GHL API, transparently
// recovering from a single token expiry per logical call.
type Client struct {
	baseURL    string
	manager    *TokenManager
	httpClient *http.Client
}

// NewClient creates a Client for the given base URL. If httpClient is nil a
// client with a 30 second timeout is used.
func NewClient(baseURL string, manager *TokenManager, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		manager:    manager,
		httpClient: httpClient,
	}
}

// Do sends method+path with the current access token and returns the raw
// response body. On a 401 it refreshes the token once and retries the
// identical request; a second 401 or any other non-2xx status surfaces as
// *APIError. Bodies are passed as byte slices so the retry resends the exact
// payload.
//
// The retry happens only when no response was accepted, so a retried POST is
// still executed at most once from the provider's point of view.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	pair, err := c.manager.Current(ctx)
	if err != nil {
		return nil, err
	}

	data, status, err := c.send(ctx, method, path, pair.AccessToken, body)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		fresh, err := c.manager.Refresh(ctx, pair)
		if err != nil {
			return nil, err
		}
		data, status, err = c.send(ctx, method, path, fresh.AccessToken, body)
		if err != nil {
			return nil, err
		}
	}

	if status < 200 || status >= 300 {
		return nil, &APIError{StatusCode: status, Body: data}
	}
	return data, nil
}

// send executes one HTTP round trip with the given access token.
func (c *Client) send(ctx context.Context, method, path, accessToken string, body []byte) ([]byte, int, error) {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, 0, &TransportError{Err: err}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, 0, &TransportError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &TransportError{Err: err}
	}
	return data, resp.StatusCode, nil
}
