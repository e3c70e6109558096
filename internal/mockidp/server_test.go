package mockidp

import (
	"crypto/rsa"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	provider, err := New(cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(provider.Handler())
	t.Cleanup(srv.Close)
	return provider, srv
}

// authorize drives the /auth endpoint and returns the code the provider
// minted for the attempt.
func authorize(t *testing.T, srv *httptest.Server, state, nonce string) string {
	t.Helper()

	q := url.Values{
		"redirect_uri": {"http://localhost:8080/oauth2callback"},
		"state":        {state},
		"nonce":        {nonce},
	}
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/auth?"+q.Encode(), nil)
	require.NoError(t, err)

	client := &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	target, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/oauth2callback", target.Scheme+"://"+target.Host+target.Path)
	assert.Equal(t, state, target.Query().Get("state"))
	assert.Equal(t, nonce, target.Query().Get("nonce"))

	code := target.Query().Get("code")
	require.NotEmpty(t, code)
	return code
}

func exchangeCode(t *testing.T, srv *httptest.Server, code string) (*http.Response, map[string]string) {
	t.Helper()

	resp, err := http.PostForm(srv.URL+"/token", url.Values{
		"grant_type": {"authorization_code"},
		"code":       {code},
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var tokens map[string]string
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(body, &tokens)
	}
	return resp, tokens
}

// publishedKey fetches the provider's JWKS and returns the RSA public key
// under the advertised kid.
func publishedKey(t *testing.T, srv *httptest.Server) *rsa.PublicKey {
	t.Helper()

	resp, err := http.Get(srv.URL + "/jwks")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	set, err := jwk.Parse(body)
	require.NoError(t, err)
	key, ok := set.LookupKeyID(keyID)
	require.True(t, ok)

	var pub rsa.PublicKey
	require.NoError(t, key.Raw(&pub))
	return &pub
}

func TestDiscoveryRootedAtRequestHost(t *testing.T) {
	_, srv := newTestProvider(t, Config{})

	resp, err := http.Get(srv.URL + "/.well-known/openid-configuration")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, srv.URL+"/auth", doc["authorization_endpoint"])
	assert.Equal(t, srv.URL+"/token", doc["token_endpoint"])
	assert.Equal(t, srv.URL+"/jwks", doc["jwks_uri"])
}

func TestAuthorizeMissingRedirectURI(t *testing.T) {
	_, srv := newTestProvider(t, Config{})

	resp, err := http.Get(srv.URL + "/auth?state=s&nonce=n")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTokenFlowIssuesVerifiableIDToken(t *testing.T) {
	_, srv := newTestProvider(t, Config{})

	code := authorize(t, srv, "state-1", "nonce-1")
	resp, tokens := exchangeCode(t, srv, code)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bearer", tokens["token_type"])
	assert.NotEmpty(t, tokens["access_token"])

	pub := publishedKey(t, srv)
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokens["id_token"], claims, func(tok *jwt.Token) (any, error) {
		assert.Equal(t, keyID, tok.Header["kid"])
		return pub, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithAudience("test-client-id"), jwt.WithIssuer(srv.URL))
	require.NoError(t, err)

	assert.Equal(t, "authtest@example.com", claims["email"])
	assert.Equal(t, "John Doe", claims["name"])
	assert.Equal(t, "nonce-1", claims["nonce"])
	assert.NotEmpty(t, claims["sub"])
}

func TestTokenUnknownCode(t *testing.T) {
	_, srv := newTestProvider(t, Config{})

	resp, _ := exchangeCode(t, srv, "never-issued")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTokenCodesAreSingleUse(t *testing.T) {
	_, srv := newTestProvider(t, Config{})

	code := authorize(t, srv, "state-1", "nonce-1")

	resp, _ := exchangeCode(t, srv, code)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = exchangeCode(t, srv, code)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNonceOverride(t *testing.T) {
	provider, srv := newTestProvider(t, Config{})
	provider.NonceOverride = "forced-nonce"

	code := authorize(t, srv, "state-1", "nonce-1")
	resp, tokens := exchangeCode(t, srv, code)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	pub := publishedKey(t, srv)
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokens["id_token"], claims, func(tok *jwt.Token) (any, error) {
		return pub, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	require.NoError(t, err)
	assert.Equal(t, "forced-nonce", claims["nonce"])
}

func TestCustomClientID(t *testing.T) {
	_, srv := newTestProvider(t, Config{ClientID: "my-app"})

	code := authorize(t, srv, "state-1", "nonce-1")
	_, tokens := exchangeCode(t, srv, code)

	pub := publishedKey(t, srv)
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokens["id_token"], claims, func(tok *jwt.Token) (any, error) {
		return pub, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithAudience("my-app"))
	require.NoError(t, err)
}
