// Package providertoken issues and verifies the short-lived signed tokens
// that authorize a login-initiation request for a specific identity provider.
//
// The token is an HS256 JWT carrying the provider name and a two-minute
// expiry. It round-trips through the browser as the `provider` query
// parameter of /auth/login and is never sent to the identity provider.
package providertoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TTL is how long an issued provider token stays valid.
const TTL = 2 * time.Minute

var (
	// ErrInvalidToken means the token is malformed or its signature does not verify.
	ErrInvalidToken = errors.New("invalid provider token")
	// ErrExpiredToken means the token's expiry has passed.
	ErrExpiredToken = errors.New("provider token expired")
	// ErrMissingClaim means a required claim is absent.
	ErrMissingClaim = errors.New("provider token missing required claim")
)

// Payload is the verified content of a provider token.
type Payload struct {
	Provider  string
	ExpiresAt time.Time
}

// Codec encodes and decodes provider tokens with a shared signing secret.
// The secret comes from configuration; the codec never generates keys.
type Codec struct {
	secret []byte
}

func NewCodec(secret []byte) Codec {
	return Codec{secret: secret}
}

// Encode returns a signed token for the given provider, expiring in TTL.
func (c Codec) Encode(provider string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"provider": provider,
		"iat":      now.Unix(),
		"exp":      now.Add(TTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign provider token: %w", err)
	}
	return token, nil
}

// Decode verifies the token's signature and claims. It fails closed: any
// tampering yields ErrInvalidToken, a passed expiry ErrExpiredToken, and an
// absent exp or provider claim ErrMissingClaim.
func (c Codec) Decode(token string) (Payload, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return Payload{}, ErrExpiredToken
	default:
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return Payload{}, fmt.Errorf("%w: exp", ErrMissingClaim)
	}

	provider, ok := claims["provider"].(string)
	if !ok || provider == "" {
		return Payload{}, fmt.Errorf("%w: provider", ErrMissingClaim)
	}

	return Payload{Provider: provider, ExpiresAt: exp.Time}, nil
}
