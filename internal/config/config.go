// Package config loads and validates the operator's secrets file.
//
// Secrets are a TOML document. Everything auth-front needs lives in the
// [auth] table: a redirect_uri shared by every provider, the cookie signing
// secret, and one sub-table per identity provider:
//
//	[auth]
//	redirect_uri = "http://localhost:8080/oauth2callback"
//	cookie_secret = "..."
//
//	[auth.google]
//	client_id = "..."
//	client_secret = "..."
//	server_metadata_url = "https://accounts.google.com/.well-known/openid-configuration"
//	client_kwargs = { prompt = "consent" }
package config

import (
	"fmt"
	"net/url"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// requiredProviderKeys are the keys every provider section must carry,
// in the order validation reports them.
var requiredProviderKeys = []string{"client_id", "client_secret", "server_metadata_url"}

// ProviderConfig is the validated configuration of one identity provider.
// Immutable once loaded.
type ProviderConfig struct {
	Name              string
	ClientID          string
	ClientSecret      string
	ServerMetadataURL string
	// ClientKwargs are extra authorize-request parameters, e.g. a scope or
	// prompt override.
	ClientKwargs map[string]string
}

// Secrets is the parsed [auth] table of the secrets file.
// A nil *Secrets models the absence of any secrets source.
type Secrets struct {
	RedirectURI  string
	CookieSecret string

	// auth is the raw table as parsed; kept so validation can distinguish
	// a missing provider section from a malformed one.
	auth map[string]any
}

// Load reads and parses the secrets file at path.
func Load(path string) (*Secrets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	return Parse(data)
}

// Parse parses a TOML secrets document.
func Parse(data []byte) (*Secrets, error) {
	var root map[string]any
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing secrets TOML: %w", err)
	}

	s := &Secrets{}
	auth, ok := root["auth"].(map[string]any)
	if !ok {
		return s, nil
	}
	s.auth = auth
	if v, ok := auth["redirect_uri"].(string); ok {
		s.RedirectURI = v
	}
	if v, ok := auth["cookie_secret"].(string); ok {
		s.CookieSecret = v
	}
	return s, nil
}

// Validate checks the general auth credentials and the credentials for the
// given provider. Checks run in order and the first failure wins; no network
// calls are made.
func (s *Secrets) Validate(provider string) error {
	if s == nil || s.auth == nil {
		return &ConfigMissingError{}
	}
	if _, ok := s.auth["redirect_uri"]; !ok {
		return &ConfigMissingError{Key: "redirect_uri"}
	}

	section, ok := s.auth[provider]
	if !ok {
		return &ProviderUnknownError{Provider: provider}
	}
	table, ok := section.(map[string]any)
	if !ok {
		return &ProviderMalformedError{Provider: provider}
	}

	var missing []string
	for _, key := range requiredProviderKeys {
		if _, ok := table[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &ProviderIncompleteError{Provider: provider, MissingKeys: missing}
	}
	return nil
}

// Provider validates and returns the configuration for the named provider.
func (s *Secrets) Provider(name string) (ProviderConfig, error) {
	if err := s.Validate(name); err != nil {
		return ProviderConfig{}, err
	}

	table := s.auth[name].(map[string]any)
	cfg := ProviderConfig{
		Name:              name,
		ClientID:          stringValue(table["client_id"]),
		ClientSecret:      stringValue(table["client_secret"]),
		ServerMetadataURL: stringValue(table["server_metadata_url"]),
	}
	if kwargs, ok := table["client_kwargs"].(map[string]any); ok {
		cfg.ClientKwargs = make(map[string]string, len(kwargs))
		for k, v := range kwargs {
			cfg.ClientKwargs[k] = stringValue(v)
		}
	}
	return cfg, nil
}

// RedirectOrigin returns the scheme://host portion of the redirect URI,
// or "" if none is configured.
func (s *Secrets) RedirectOrigin() string {
	if s == nil || s.RedirectURI == "" {
		return ""
	}
	u, err := url.Parse(s.RedirectURI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
