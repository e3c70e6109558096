package idp

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is an immutable read-only view over a verified ID token's claim
// set. Known fields have typed accessors; anything else goes through Get,
// which fails on unknown keys instead of silently returning a zero value.
type Claims struct {
	m jwt.MapClaims
}

func newClaims(m jwt.MapClaims) *Claims {
	copied := make(jwt.MapClaims, len(m))
	for k, v := range m {
		copied[k] = v
	}
	return &Claims{m: copied}
}

func (c *Claims) Email() string   { return c.stringClaim("email") }
func (c *Claims) Name() string    { return c.stringClaim("name") }
func (c *Claims) Subject() string { return c.stringClaim("sub") }
func (c *Claims) Nonce() string   { return c.stringClaim("nonce") }
func (c *Claims) Issuer() string  { return c.stringClaim("iss") }

// Audience returns the first audience value.
func (c *Claims) Audience() string {
	aud, err := c.m.GetAudience()
	if err != nil || len(aud) == 0 {
		return ""
	}
	return aud[0]
}

func (c *Claims) IssuedAt() time.Time {
	if iat, err := c.m.GetIssuedAt(); err == nil && iat != nil {
		return iat.Time
	}
	return time.Time{}
}

func (c *Claims) ExpiresAt() time.Time {
	if exp, err := c.m.GetExpirationTime(); err == nil && exp != nil {
		return exp.Time
	}
	return time.Time{}
}

// Get looks up an arbitrary claim by key.
func (c *Claims) Get(key string) (any, error) {
	v, ok := c.m[key]
	if !ok {
		return nil, fmt.Errorf("unknown claim %q", key)
	}
	return v, nil
}

func (c *Claims) stringClaim(key string) string {
	s, _ := c.m[key].(string)
	return s
}
