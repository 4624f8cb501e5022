package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps the token pair in OS-native secure credential storage.
// Uses macOS Keychain, Windows Credential Manager, or Linux Secret Service.
// The pair is stored as a single JSON secret, so replacement is atomic.
type KeyringStore struct {
	service string
	user    string
}

// Compile-time check to ensure KeyringStore implements Store
var _ Store = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore for the OS-native credential storage
// using the given service and user identifiers.
func NewKeyringStore(service, user string) (*KeyringStore, error) {
	if service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}
	if user == "" {
		return nil, fmt.Errorf("user cannot be empty")
	}

	return &KeyringStore{
		service: service,
		user:    user,
	}, nil
}

// LoadCurrent returns the pair from the system keyring. Returns ErrNotFound
// when no secret exists for the service/user combination.
func (k *KeyringStore) LoadCurrent(ctx context.Context) (TokenPair, error) {
	if err := ctx.Err(); err != nil {
		return TokenPair{}, err
	}

	secret, err := keyring.Get(k.service, k.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return TokenPair{}, ErrNotFound
		}
		return TokenPair{}, &UnavailableError{Err: err}
	}

	var pair TokenPair
	if err := json.Unmarshal([]byte(secret), &pair); err != nil {
		return TokenPair{}, &UnavailableError{
			Err: fmt.Errorf("decoding keyring secret for service %s, user %s: %w", k.service, k.user, err),
		}
	}
	if pair.AccessToken == "" && pair.RefreshToken == "" {
		return TokenPair{}, ErrNotFound
	}
	return pair, nil
}

// Save persists the pair to the system keyring, overwriting any existing value.
func (k *KeyringStore) Save(ctx context.Context, pair TokenPair) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pair.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(pair)
	if err != nil {
		return &UnavailableError{Err: err}
	}

	if err := keyring.Set(k.service, k.user, string(data)); err != nil {
		return &UnavailableError{Err: err}
	}
	return nil
}
