package ghl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestAuthURLRoundTripsReservedCharacters(t *testing.T) {
	// Values with reserved characters must survive URL construction and
	// standard parsing unchanged.
	clientID := "client&id=with reserved?chars"
	redirectURI := "https://example.com/oauth/callback?src=bot&x=1"
	state := "state/with spaces&ampersands"

	auth := NewAuthorizer(clientID, "secret", redirectURI)
	raw := auth.AuthURL(state)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	q := parsed.Query()
	assert.Equal(t, clientID, q.Get("client_id"))
	assert.Equal(t, redirectURI, q.Get("redirect_uri"))
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, strings.Join(Scopes, " "), q.Get("scope"))

	assert.Equal(t, "marketplace.gohighlevel.com", parsed.Host)
	assert.Equal(t, "/oauth/authorize", parsed.Path)
}

func TestExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		assert.Equal(t, "the-code", r.Form.Get("code"))
		assert.Equal(t, "https://example.com/cb", r.Form.Get("redirect_uri"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-1","refresh_token":"refresh-1","token_type":"Bearer"}`))
	}))
	defer srv.Close()

	auth := NewAuthorizer("client-id", "client-secret", "https://example.com/cb",
		WithEndpoint(oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams}),
		WithHTTPClient(srv.Client()),
	)

	pair, err := auth.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "access-1", pair.AccessToken)
	assert.Equal(t, "refresh-1", pair.RefreshToken)
}

func TestExchangeRejectedCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	auth := NewAuthorizer("client-id", "client-secret", "https://example.com/cb",
		WithEndpoint(oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams}),
		WithHTTPClient(srv.Client()),
	)

	_, err := auth.Exchange(context.Background(), "bad-code")
	var exchangeErr *ExchangeError
	assert.ErrorAs(t, err, &exchangeErr)
}

func TestExchangeMissingRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-1","token_type":"Bearer"}`))
	}))
	defer srv.Close()

	auth := NewAuthorizer("client-id", "client-secret", "https://example.com/cb",
		WithEndpoint(oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams}),
		WithHTTPClient(srv.Client()),
	)

	_, err := auth.Exchange(context.Background(), "the-code")
	var exchangeErr *ExchangeError
	assert.ErrorAs(t, err, &exchangeErr)
}
