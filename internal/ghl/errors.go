package ghl

import "fmt"

// APIError is a non-2xx response from the GHL business API. Carries the
// status code and raw response body for diagnosis.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ghl: unexpected status %d: %s", e.StatusCode, string(e.Body))
}

// TransportError is a network-level failure (DNS, timeout, connection reset)
// talking to GHL. Retryable by the caller with backoff, not by this layer.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "ghl: transport: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// RefreshError is a failed refresh-token exchange. Usually means the refresh
// token was revoked and a new consent is required; never auto-retried.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string { return "ghl: token refresh failed: " + e.Err.Error() }

func (e *RefreshError) Unwrap() error { return e.Err }

// ExchangeError is a failed authorization-code exchange during the one-time
// consent flow.
type ExchangeError struct {
	Err error
}

func (e *ExchangeError) Error() string { return "ghl: code exchange failed: " + e.Err.Error() }

func (e *ExchangeError) Unwrap() error { return e.Err }
