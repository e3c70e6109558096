package idp

import (
	"errors"
	"fmt"
)

// ErrNonceMismatch means the ID token's nonce claim does not match the nonce
// recorded for the login attempt. Always fatal: it indicates a replayed or
// cross-wired token.
var ErrNonceMismatch = errors.New("id token nonce does not match login attempt")

// DiscoveryError wraps a failure to fetch or parse a provider's discovery
// document.
type DiscoveryError struct {
	URL string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery failed for %s: %v", e.URL, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// ExchangeError wraps a failure during the authorization-code exchange or
// the verification of the returned tokens.
type ExchangeError struct {
	Provider string
	Err      error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token exchange with %q failed: %v", e.Provider, e.Err)
}

func (e *ExchangeError) Unwrap() error { return e.Err }
