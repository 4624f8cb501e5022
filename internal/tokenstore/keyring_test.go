package tokenstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringStoreRoundTrip(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore("ghl-relay-test", "bot")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}))

	pair, err := store.LoadCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1", pair.AccessToken)
	assert.Equal(t, "refresh-1", pair.RefreshToken)
}

func TestKeyringStoreEmpty(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore("ghl-relay-test-empty", "nobody")
	require.NoError(t, err)

	_, err = store.LoadCurrent(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeyringStoreValidation(t *testing.T) {
	_, err := NewKeyringStore("", "user")
	assert.Error(t, err)

	_, err = NewKeyringStore("service", "")
	assert.Error(t, err)
}
