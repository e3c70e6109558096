package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSecrets = `
[auth]
redirect_uri = "http://localhost:8080/oauth2callback"
cookie_secret = "cookie-secret"

[auth.google]
client_id = "CLIENT_ID"
client_secret = "CLIENT_SECRET"
server_metadata_url = "https://accounts.google.com/.well-known/openid-configuration"

[auth.scoped]
client_id = "x"
client_secret = "y"
server_metadata_url = "https://idp.example.com/.well-known/openid-configuration"
client_kwargs = { scope = "openid email", prompt = "consent" }
`

func TestValidateNilSecrets(t *testing.T) {
	var s *Secrets

	var missing *ConfigMissingError
	err := s.Validate("google")
	require.ErrorAs(t, err, &missing)
	assert.Empty(t, missing.Key)
}

func TestValidateNoAuthSection(t *testing.T) {
	s, err := Parse([]byte(`other = "table"`))
	require.NoError(t, err)

	var missing *ConfigMissingError
	require.ErrorAs(t, s.Validate("google"), &missing)
}

func TestValidateMissingRedirectURI(t *testing.T) {
	s, err := Parse([]byte(`
[auth]
cookie_secret = "x"

[auth.google]
client_id = "a"
client_secret = "b"
server_metadata_url = "c"
`))
	require.NoError(t, err)

	var missing *ConfigMissingError
	err = s.Validate("google")
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "redirect_uri", missing.Key)
	assert.Contains(t, err.Error(), "redirect_uri")
}

func TestValidateUnknownProvider(t *testing.T) {
	s, err := Parse([]byte(validSecrets))
	require.NoError(t, err)

	var unknown *ProviderUnknownError
	err = s.Validate("invalid_provider")
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "invalid_provider", unknown.Provider)
	assert.Contains(t, err.Error(), "invalid_provider")
}

func TestValidateMalformedProvider(t *testing.T) {
	s, err := Parse([]byte(`
[auth]
redirect_uri = "http://localhost:8080/oauth2callback"
google = "oops"
`))
	require.NoError(t, err)

	var malformed *ProviderMalformedError
	err = s.Validate("google")
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, err.Error(), "google")
}

func TestValidateIncompleteProvider(t *testing.T) {
	tests := []struct {
		name    string
		section string
		missing []string
	}{
		{
			name:    "only_client_id",
			section: `client_id = "a"`,
			missing: []string{"client_secret", "server_metadata_url"},
		},
		{
			name:    "only_metadata_url",
			section: `server_metadata_url = "c"`,
			missing: []string{"client_id", "client_secret"},
		},
		{
			name:    "empty_section",
			section: `ignored_key = "z"`,
			missing: []string{"client_id", "client_secret", "server_metadata_url"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse([]byte(`
[auth]
redirect_uri = "http://localhost:8080/oauth2callback"

[auth.partial]
` + tt.section))
			require.NoError(t, err)

			var incomplete *ProviderIncompleteError
			err = s.Validate("partial")
			require.ErrorAs(t, err, &incomplete)
			assert.Equal(t, "partial", incomplete.Provider)
			assert.Equal(t, tt.missing, incomplete.MissingKeys)
			assert.Contains(t, err.Error(), "partial")
		})
	}
}

func TestProviderReturnsConfig(t *testing.T) {
	s, err := Parse([]byte(validSecrets))
	require.NoError(t, err)

	require.NoError(t, s.Validate("google"))

	cfg, err := s.Provider("google")
	require.NoError(t, err)
	assert.Equal(t, "google", cfg.Name)
	assert.Equal(t, "CLIENT_ID", cfg.ClientID)
	assert.Equal(t, "CLIENT_SECRET", cfg.ClientSecret)
	assert.Equal(t, "https://accounts.google.com/.well-known/openid-configuration", cfg.ServerMetadataURL)
	assert.Nil(t, cfg.ClientKwargs)
}

func TestProviderClientKwargs(t *testing.T) {
	s, err := Parse([]byte(validSecrets))
	require.NoError(t, err)

	cfg, err := s.Provider("scoped")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"scope": "openid email", "prompt": "consent"}, cfg.ClientKwargs)
}

func TestRedirectOrigin(t *testing.T) {
	s, err := Parse([]byte(validSecrets))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", s.RedirectOrigin())

	var nilSecrets *Secrets
	assert.Empty(t, nilSecrets.RedirectOrigin())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.toml")
	require.NoError(t, os.WriteFile(path, []byte(validSecrets), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "cookie-secret", s.CookieSecret)
	assert.NoError(t, s.Validate("google"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseInvalidTOML(t *testing.T) {
	_, err := Parse([]byte(`[auth`))
	assert.Error(t, err)
}
