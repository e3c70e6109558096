package crypto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TokenSigner provides HMAC-signed JSON tokens with optional expiry.
// A ttl of zero produces tokens that never expire on their own.
type TokenSigner struct {
	signingKey []byte
	ttl        time.Duration
}

// NewTokenSigner creates a new token signer
func NewTokenSigner(signingKey []byte, ttl time.Duration) TokenSigner {
	return TokenSigner{
		signingKey: signingKey,
		ttl:        ttl,
	}
}

type tokenEnvelope struct {
	Data      json.RawMessage `json:"data"`
	ExpiresAt time.Time       `json:"expires_at,omitempty"`
}

// Sign marshals v to JSON, signs it with HMAC, and returns a base64-encoded token
func (ts *TokenSigner) Sign(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal data: %w", err)
	}

	envelope := tokenEnvelope{Data: data}
	if ts.ttl > 0 {
		envelope.ExpiresAt = time.Now().Add(ts.ttl)
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token envelope: %w", err)
	}

	signature := SignData(string(payload), ts.signingKey)
	return base64.RawURLEncoding.EncodeToString(payload) + "." + signature, nil
}

// Verify validates the signature, checks expiry, and unmarshals the data into v
func (ts *TokenSigner) Verify(token string, v any) error {
	payloadPart, signature, ok := strings.Cut(token, ".")
	if !ok {
		return fmt.Errorf("invalid token format")
	}

	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return fmt.Errorf("failed to decode token payload: %w", err)
	}

	if !ValidateSignedData(string(payload), signature, ts.signingKey) {
		return fmt.Errorf("invalid signature")
	}

	var envelope tokenEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("failed to unmarshal token envelope: %w", err)
	}

	if !envelope.ExpiresAt.IsZero() && time.Now().After(envelope.ExpiresAt) {
		return fmt.Errorf("token expired")
	}

	if err := json.Unmarshal(envelope.Data, v); err != nil {
		return fmt.Errorf("failed to unmarshal token data: %w", err)
	}

	return nil
}
