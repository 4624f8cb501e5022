package ghl

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/leadwire/ghl-relay/internal/tokenstore"
)

// Endpoint defines the GHL marketplace OAuth endpoints used for the one-time
// consent flow. Steady-state refresh goes through the business API's token
// endpoint instead (see Refresher).
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://marketplace.gohighlevel.com/oauth/authorize",
	TokenURL:  "https://marketplace.gohighlevel.com/oauth/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// Scopes is the GHL permission set requested during consent.
var Scopes = []string{
	"contacts.readonly", "contacts.write",
	"conversations.readonly", "conversations.write",
	"locations.readonly", "locations.write",
	"opportunities.readonly", "opportunities.write",
	"users.readonly", "users.write",
}

// AuthorizerOption configures an Authorizer.
type AuthorizerOption func(*Authorizer)

// WithEndpoint overrides the OAuth endpoints, mainly for tests.
func WithEndpoint(endpoint oauth2.Endpoint) AuthorizerOption {
	return func(a *Authorizer) {
		a.cfg.Endpoint = endpoint
	}
}

// WithHTTPClient sets the HTTP client used for the code exchange.
func WithHTTPClient(client *http.Client) AuthorizerOption {
	return func(a *Authorizer) {
		a.httpClient = client
	}
}

// Authorizer drives the one-time consent flow: building the authorization URL
// and exchanging the returned code for the initial token pair. It performs no
// persistence; the caller saves the result through the token store.
type Authorizer struct {
	cfg        *oauth2.Config
	httpClient *http.Client
}

// NewAuthorizer creates an Authorizer for the given client credentials and
// redirect URI.
func NewAuthorizer(clientID, clientSecret, redirectURI string, opts ...AuthorizerOption) *Authorizer {
	a := &Authorizer{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       Scopes,
			Endpoint:     Endpoint,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AuthURL returns the provider authorization URL for the given state. Pure
// construction, no network call. All query parameters are percent-encoded, so
// client IDs, redirect URIs, and scopes containing reserved characters
// round-trip through standard URL parsing.
func (a *Authorizer) AuthURL(state string) string {
	return a.cfg.AuthCodeURL(state)
}

// Exchange performs the grant_type=authorization_code exchange. A non-2xx
// response or a token response missing the refresh token yields
// *ExchangeError.
func (a *Authorizer) Exchange(ctx context.Context, code string) (tokenstore.TokenPair, error) {
	if a.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	}

	token, err := a.cfg.Exchange(ctx, code)
	if err != nil {
		return tokenstore.TokenPair{}, &ExchangeError{Err: err}
	}
	if token.RefreshToken == "" {
		return tokenstore.TokenPair{}, &ExchangeError{Err: errors.New("token response missing refresh_token")}
	}

	return tokenstore.TokenPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}, nil
}
