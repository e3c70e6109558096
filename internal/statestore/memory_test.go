package statestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutTake(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	entry := Entry{
		Provider:    "testprovider",
		Nonce:       "nonce-value",
		RedirectURI: "http://localhost:8080/oauth2callback",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, store.Put(ctx, "state-1", entry, DefaultTTL))

	got, err := store.Take(ctx, "state-1")
	require.NoError(t, err)
	assert.Equal(t, entry.Provider, got.Provider)
	assert.Equal(t, entry.Nonce, got.Nonce)
}

func TestMemoryStoreStateIsSingleUse(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "state-1", Entry{Provider: "p"}, DefaultTTL))

	_, err := store.Take(ctx, "state-1")
	require.NoError(t, err)

	_, err = store.Take(ctx, "state-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreUnknownState(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Take(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "state-1", Entry{Provider: "p"}, 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, err := store.Take(ctx, "state-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
