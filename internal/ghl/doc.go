// Package ghl implements the OAuth token lifecycle and authenticated request
// wrapper for the GoHighLevel conversation API.
//
// # Token lifecycle
//
// TokenManager holds the in-memory token pair shared by all concurrent
// request paths, seeded lazily from a tokenstore.Store. When a request
// observes a 401, the manager performs one refresh exchange, persists the new
// pair, and resynchronizes the cache. Concurrent 401s are coalesced behind a
// single provider call via singleflight: GHL invalidates a refresh token on
// first use, so uncoalesced concurrent exchanges would permanently strand the
// process.
//
// # Request execution
//
// Client attaches the bearer token and the fixed API version header to every
// call and retries exactly once after a refresh. Every other failure surfaces
// as one of the typed errors in this package (*APIError, *TransportError,
// *RefreshError, *ExchangeError), so callers can distinguish retryable from
// fatal conditions.
//
// # Consent
//
// Authorizer covers the one-time setup flow only: building the marketplace
// authorization URL and exchanging the returned code. It never runs on the
// steady-state request path.
package ghl
