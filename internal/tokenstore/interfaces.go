package tokenstore

import (
	"context"
	"errors"
	"time"
)

// TokenPair is the persisted OAuth credential pair. Access and refresh tokens
// are always replaced together, never field-wise, so a stored refresh token
// always matches the stored access token. UpdatedAt defines which pair is
// current when more than one row could exist.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ErrNotFound is returned by LoadCurrent when no pair has ever been stored,
// i.e. the initial OAuth consent has not completed yet.
var ErrNotFound = errors.New("no token pair stored")

// UnavailableError indicates the backing store could not be reached.
// Transient; callers may retry at a higher layer.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return "token store unavailable: " + e.Err.Error()
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Store reads and writes the current token pair in durable storage.
type Store interface {
	// LoadCurrent returns the most recently updated pair. Returns ErrNotFound
	// if no pair exists and *UnavailableError if the backend cannot be reached.
	LoadCurrent(ctx context.Context) (TokenPair, error)

	// Save upserts the pair as current, stamping UpdatedAt. The write is
	// atomic with respect to concurrent readers: a reader never observes an
	// access token from one pair and a refresh token from another.
	Save(ctx context.Context, pair TokenPair) error
}
