// Package statestore tracks in-flight login attempts between the login
// redirect and the provider callback, keyed by the opaque state value.
package statestore

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL bounds how long a login attempt may stay pending. Entries past
// their TTL are rejected on read; they are not actively garbage-collected.
const DefaultTTL = 5 * time.Minute

// ErrNotFound means the state value is unknown, expired, or already used.
var ErrNotFound = errors.New("login state not found")

// Entry records one pending login attempt.
type Entry struct {
	Provider    string    `json:"provider"`
	Nonce       string    `json:"nonce"`
	RedirectURI string    `json:"redirect_uri"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store maps an unguessable state value to its pending login attempt.
// Take removes the entry on read, so every state value is single-use.
// Implementations must be safe for concurrent use.
type Store interface {
	Put(ctx context.Context, state string, entry Entry, ttl time.Duration) error
	Take(ctx context.Context, state string) (Entry, error)
}
