package idp

import (
	"context"
	"crypto/rsa"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/oauth2"

	"github.com/mkessler/auth-front/internal/config"
)

var defaultScopes = []string{"openid", "email", "profile"}

// Client is the relying-party side of one identity provider: it builds the
// authorization redirect, exchanges the code, and verifies the ID token.
type Client struct {
	provider   string
	oauth      oauth2.Config
	issuer     string
	jwksURI    string
	kwargs     map[string]string
	httpClient *http.Client
}

func newClient(cfg config.ProviderConfig, doc Document, redirectURI string, httpClient *http.Client) *Client {
	scopes := defaultScopes
	if override, ok := cfg.ClientKwargs["scope"]; ok {
		scopes = strings.Fields(override)
	}

	return &Client{
		provider: cfg.Name,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  doc.AuthorizationEndpoint,
				TokenURL: doc.TokenEndpoint,
			},
		},
		issuer:     doc.Issuer,
		jwksURI:    doc.JWKSURI,
		kwargs:     cfg.ClientKwargs,
		httpClient: httpClient,
	}
}

// Provider returns the provider name this client was built for.
func (c *Client) Provider() string { return c.provider }

// AuthCodeURL builds the authorization redirect URL. The query carries
// client_id, redirect_uri, response_type=code, scope, state, nonce, and
// prompt=select_account unless the provider config overrides it. The client
// secret never appears here.
func (c *Client) AuthCodeURL(state, nonce string) string {
	opts := []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("nonce", nonce)}

	prompt := "select_account"
	if override, ok := c.kwargs["prompt"]; ok {
		prompt = override
	}
	opts = append(opts, oauth2.SetAuthURLParam("prompt", prompt))

	for k, v := range c.kwargs {
		if k == "prompt" || k == "scope" {
			continue
		}
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}

	return c.oauth.AuthCodeURL(state, opts...)
}

// Exchange swaps the authorization code for tokens at the provider's token
// endpoint.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, &ExchangeError{Provider: c.provider, Err: err}
	}
	return token, nil
}

// VerifyIDToken checks the ID token in the exchange response: signature via
// the provider's JWKS, audience, expiry, issuer when the discovery document
// declares one, and the nonce recorded for this login attempt. The email
// claim is required.
func (c *Client) VerifyIDToken(ctx context.Context, token *oauth2.Token, nonce string) (*Claims, error) {
	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, &ExchangeError{Provider: c.provider, Err: fmt.Errorf("token response has no id_token")}
	}

	keys, err := c.fetchJWKS(ctx)
	if err != nil {
		return nil, &ExchangeError{Provider: c.provider, Err: err}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(c.oauth.ClientID),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		key, ok := keys.LookupKeyID(kid)
		if !ok {
			return nil, fmt.Errorf("jwks has no key with kid %q", kid)
		}
		var pub rsa.PublicKey
		if err := key.Raw(&pub); err != nil {
			return nil, fmt.Errorf("unusable jwks key %q: %w", kid, err)
		}
		return &pub, nil
	}, opts...); err != nil {
		return nil, &ExchangeError{Provider: c.provider, Err: fmt.Errorf("id token verification failed: %w", err)}
	}

	if got, _ := claims["nonce"].(string); got != nonce {
		return nil, ErrNonceMismatch
	}

	verified := newClaims(claims)
	if verified.Email() == "" {
		return nil, &ExchangeError{Provider: c.provider, Err: fmt.Errorf("id token has no email claim")}
	}
	return verified, nil
}

func (c *Client) fetchJWKS(ctx context.Context) (jwk.Set, error) {
	if c.jwksURI == "" {
		return nil, fmt.Errorf("provider declares no jwks_uri")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jwksURI, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read jwks: %w", err)
	}

	keys, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jwks: %w", err)
	}
	return keys, nil
}
