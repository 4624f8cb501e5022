package ghl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// apiServer is a fake GHL business API that accepts only the given bearer
// token and counts calls.
type apiServer struct {
	mu           sync.Mutex
	calls        int
	validToken   string // 401 for any other bearer; empty means reject all
	responseBody string
}

func (a *apiServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.calls++
		a.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+a.validToken || a.validToken == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(a.responseBody))
	}
}

func (a *apiServer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// newTestClient wires a Client against the given fake API and token endpoint,
// seeded with the stale pair.
func newTestClient(t *testing.T, api *httptest.Server, token *httptest.Server, store *memStore) *Client {
	t.Helper()
	refresher := NewRefresher(token.URL, "client-id", "client-secret", token.Client())
	mgr := NewTokenManager(store, refresher, "client-id")
	return NewClient(api.URL, mgr, api.Client())
}

func TestClientPassthrough(t *testing.T) {
	const body = `{"id":"123","pipeline":{"name":"Sales"}}`

	var gotVersion, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVersion = r.Header.Get("Version")
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/contacts/123", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	token := httptest.NewServer((&tokenEndpoint{}).handler())
	defer token.Close()

	client := newTestClient(t, srv, token, seededStore("access-1", "refresh-1"))

	data, err := client.Do(context.Background(), http.MethodGet, "contacts/123", nil)
	require.NoError(t, err)
	assert.JSONEq(t, body, string(data))
	assert.Equal(t, "Bearer access-1", gotAuth)
	assert.Equal(t, apiVersion, gotVersion)
}

func TestClientRefreshAndRetryOn401(t *testing.T) {
	api := &apiServer{validToken: "access-new", responseBody: `{"ok":true}`}
	apiSrv := httptest.NewServer(api.handler())
	defer apiSrv.Close()

	endpoint := &tokenEndpoint{access: "access-new", refresh: "refresh-new"}
	tokenSrv := httptest.NewServer(endpoint.handler())
	defer tokenSrv.Close()

	store := seededStore("access-old", "refresh-old")
	client := newTestClient(t, apiSrv, tokenSrv, store)

	data, err := client.Do(context.Background(), http.MethodGet, "contacts/123", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))

	// One original request, one refresh, one retried request.
	assert.Equal(t, 2, api.callCount())
	assert.Equal(t, 1, endpoint.callCount())

	// The new pair must be persisted and cached for later calls.
	assert.Equal(t, "access-new", store.current(t).AccessToken)
}

func TestClientNoRetryStorm(t *testing.T) {
	// Provider rejects credentials even after a successful refresh.
	api := &apiServer{validToken: ""}
	apiSrv := httptest.NewServer(api.handler())
	defer apiSrv.Close()

	endpoint := &tokenEndpoint{access: "access-new", refresh: "refresh-new"}
	tokenSrv := httptest.NewServer(endpoint.handler())
	defer tokenSrv.Close()

	client := newTestClient(t, apiSrv, tokenSrv, seededStore("access-old", "refresh-old"))

	_, err := client.Do(context.Background(), http.MethodGet, "contacts/123", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	// Exactly two business-API calls and one refresh call, then give up.
	assert.Equal(t, 2, api.callCount())
	assert.Equal(t, 1, endpoint.callCount())
}

func TestClientConcurrent401sCoalesceRefresh(t *testing.T) {
	const callers = 8

	api := &apiServer{validToken: "access-new", responseBody: `{"ok":true}`}
	apiSrv := httptest.NewServer(api.handler())
	defer apiSrv.Close()

	endpoint := &tokenEndpoint{access: "access-new", refresh: "refresh-new"}
	tokenSrv := httptest.NewServer(endpoint.handler())
	defer tokenSrv.Close()

	client := newTestClient(t, apiSrv, tokenSrv, seededStore("access-old", "refresh-old"))

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = client.Do(context.Background(), http.MethodGet, "contacts/123", nil)
		}()
	}
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
	}
	assert.Equal(t, 1, endpoint.callCount(),
		"concurrent expired callers must share a single refresh exchange")
}

func TestClientSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"contactId is required"}`))
	}))
	defer srv.Close()

	token := httptest.NewServer((&tokenEndpoint{}).handler())
	defer token.Close()

	client := newTestClient(t, srv, token, seededStore("access-1", "refresh-1"))

	_, err := client.Do(context.Background(), http.MethodPost, "conversations/messages", []byte(`{}`))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, string(apiErr.Body), "contactId is required")
}

func TestClientSurfacesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from now on

	token := httptest.NewServer((&tokenEndpoint{}).handler())
	defer token.Close()

	refresher := NewRefresher(token.URL, "client-id", "client-secret", token.Client())
	mgr := NewTokenManager(seededStore("access-1", "refresh-1"), refresher, "client-id")
	client := NewClient(srv.URL, mgr, nil)

	_, err := client.Do(context.Background(), http.MethodGet, "contacts/123", nil)
	var transportErr *TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestClientRetryResendsIdenticalBody(t *testing.T) {
	var bodies []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		raw, _ := json.Marshal(payload)

		mu.Lock()
		bodies = append(bodies, string(raw))
		first := len(bodies) == 1
		mu.Unlock()

		if first {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	endpoint := &tokenEndpoint{access: "access-new", refresh: "refresh-new"}
	tokenSrv := httptest.NewServer(endpoint.handler())
	defer tokenSrv.Close()

	client := newTestClient(t, srv, tokenSrv, seededStore("access-old", "refresh-old"))

	payload := []byte(`{"contactId":"123","message":"hi"}`)
	_, err := client.Do(context.Background(), http.MethodPost, "conversations/messages", payload)
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.Equal(t, bodies[0], bodies[1], "retried request must carry the identical payload")
}
