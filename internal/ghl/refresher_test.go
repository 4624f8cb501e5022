package ghl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefresherSendsFormExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "refresh-old", r.Form.Get("refresh_token"))
		assert.Equal(t, "client-id", r.Form.Get("client_id"))
		assert.Equal(t, "client-secret", r.Form.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-new","refresh_token":"refresh-new"}`))
	}))
	defer srv.Close()

	refresher := NewRefresher(srv.URL, "client-id", "client-secret", srv.Client())

	pair, err := refresher.Refresh(context.Background(), "refresh-old")
	require.NoError(t, err)
	assert.Equal(t, "access-new", pair.AccessToken)
	assert.Equal(t, "refresh-new", pair.RefreshToken)
}

func TestRefresherRejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	refresher := NewRefresher(srv.URL, "client-id", "client-secret", srv.Client())

	_, err := refresher.Refresh(context.Background(), "revoked")
	var refreshErr *RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Contains(t, refreshErr.Error(), "invalid_grant")
}

func TestRefresherMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `<html>gateway error</html>`},
		{name: "missing refresh_token", body: `{"access_token":"access-new"}`},
		{name: "missing access_token", body: `{"refresh_token":"refresh-new"}`},
		{name: "empty object", body: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			refresher := NewRefresher(srv.URL, "client-id", "client-secret", srv.Client())

			_, err := refresher.Refresh(context.Background(), "refresh-old")
			var refreshErr *RefreshError
			assert.ErrorAs(t, err, &refreshErr)
		})
	}
}

func TestRefresherTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	refresher := NewRefresher(srv.URL, "client-id", "client-secret", nil)

	_, err := refresher.Refresh(context.Background(), "refresh-old")
	var refreshErr *RefreshError
	assert.ErrorAs(t, err, &refreshErr)
}
