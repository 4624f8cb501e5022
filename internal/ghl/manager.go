package ghl

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/leadwire/ghl-relay/internal/tokenstore"
)

// TokenManager owns the in-memory copy of the current token pair and keeps it
// in sync with the durable store. It is an explicit, injectable dependency
// shared by all concurrent request paths; internal synchronization makes it
// safe without any caller-side coordination.
type TokenManager struct {
	store     tokenstore.Store
	refresher *Refresher
	clientID  string

	seedMu sync.Mutex // guards the initial load from the store
	cached atomic.Pointer[tokenstore.TokenPair]
	flight singleflight.Group
}

// NewTokenManager creates a TokenManager. No I/O is performed until the first
// Current call.
func NewTokenManager(store tokenstore.Store, refresher *Refresher, clientID string) *TokenManager {
	return &TokenManager{
		store:     store,
		refresher: refresher,
		clientID:  clientID,
	}
}

// Current returns the cached pair, lazily seeding it from the store on first
// use. Store errors (tokenstore.ErrNotFound, *tokenstore.UnavailableError)
// propagate unchanged.
func (m *TokenManager) Current(ctx context.Context) (tokenstore.TokenPair, error) {
	if p := m.cached.Load(); p != nil {
		return *p, nil
	}

	m.seedMu.Lock()
	defer m.seedMu.Unlock()

	// Another caller may have seeded while we waited for the lock.
	if p := m.cached.Load(); p != nil {
		return *p, nil
	}

	pair, err := m.store.LoadCurrent(ctx)
	if err != nil {
		return tokenstore.TokenPair{}, err
	}
	m.cached.Store(&pair)
	return pair, nil
}

// Refresh exchanges the refresh token for a new pair, persists it, and
// resynchronizes the cache. stale is the pair the caller was using when it
// observed the 401.
//
// Concurrent callers are coalesced behind a single provider call keyed on the
// client ID: most OAuth providers invalidate a refresh token on first use, so
// a second concurrent exchange with the same token would fail permanently.
// Callers that arrive after a refresh already replaced their stale pair get
// the cached result without another provider call.
func (m *TokenManager) Refresh(ctx context.Context, stale tokenstore.TokenPair) (tokenstore.TokenPair, error) {
	v, err, _ := m.flight.Do(m.clientID, func() (any, error) {
		if p := m.cached.Load(); p != nil && p.AccessToken != stale.AccessToken {
			// Someone else refreshed while we waited.
			return *p, nil
		}

		fresh, err := m.refresher.Refresh(ctx, stale.RefreshToken)
		if err != nil {
			return nil, err
		}

		if err := m.store.Save(ctx, fresh); err != nil {
			// The provider already rotated the tokens; dropping them now would
			// strand the process with a revoked refresh token. Keep serving
			// from memory and surface the persistence failure loudly.
			slog.ErrorContext(ctx, "failed to persist refreshed token pair", "error", err)
		}

		// Cache update happens before the singleflight result is delivered,
		// so every later Current observes the new pair.
		m.cached.Store(&fresh)
		return fresh, nil
	})
	if err != nil {
		return tokenstore.TokenPair{}, err
	}
	return v.(tokenstore.TokenPair), nil
}

// SetTokens persists a pair obtained out of band (the one-time OAuth consent
// callback) and resets the cache.
func (m *TokenManager) SetTokens(ctx context.Context, accessToken, refreshToken string) error {
	pair := tokenstore.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}
	if err := m.store.Save(ctx, pair); err != nil {
		return err
	}
	m.cached.Store(&pair)
	return nil
}
