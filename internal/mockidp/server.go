// Package mockidp is a standalone OIDC identity provider double for
// end-to-end testing of the login flow. It authenticates every
// authorization request unconditionally and issues nonce-bound RS256 ID
// tokens with a fixed identity, signed by a keypair generated at startup.
package mockidp

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"

	jsonwriter "github.com/mkessler/auth-front/internal/json"
	"github.com/mkessler/auth-front/internal/log"
	"github.com/mkessler/auth-front/internal/urlutil"
)

// keyID is the fixed kid under which the signing key is published.
const keyID = "1"

// Config sets the identity the mock asserts. Zero values fall back to the
// defaults used across the end-to-end tests.
type Config struct {
	ClientID string
	Email    string
	Name     string
}

// Server simulates an OIDC provider: discovery document, authorization
// endpoint, token endpoint, and JWKS. The same key signs every token for
// the process lifetime.
type Server struct {
	cfg  Config
	key  *rsa.PrivateKey
	jwks jwk.Set

	mu    sync.Mutex
	codes map[string]string // authorization code -> nonce

	// NonceOverride, when set, forces issued ID tokens to carry this nonce
	// instead of the one recorded at the authorize step. Test knob for the
	// replay-defense path.
	NonceOverride string
}

func New(cfg Config) (*Server, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = "test-client-id"
	}
	if cfg.Email == "" {
		cfg.Email = "authtest@example.com"
	}
	if cfg.Name == "" {
		cfg.Name = "John Doe"
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}

	pub, err := jwk.FromRaw(key.Public())
	if err != nil {
		return nil, fmt.Errorf("failed to build jwk: %w", err)
	}
	if err := pub.Set(jwk.KeyIDKey, keyID); err != nil {
		return nil, err
	}
	if err := pub.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
		return nil, err
	}
	if err := pub.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, err
	}

	jwks := jwk.NewSet()
	if err := jwks.AddKey(pub); err != nil {
		return nil, err
	}

	return &Server{
		cfg:   cfg,
		key:   key,
		jwks:  jwks,
		codes: make(map[string]string),
	}, nil
}

// Handler returns the provider's HTTP surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/.well-known/openid-configuration", s.handleDiscovery)
	r.Get("/auth", s.handleAuthorize)
	r.Post("/token", s.handleToken)
	r.Get("/jwks", s.handleJWKS)
	return r
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	base := "http://" + r.Host
	_ = jsonwriter.Write(w, map[string]string{
		"authorization_endpoint": urlutil.MustJoinPath(base, "auth"),
		"token_endpoint":         urlutil.MustJoinPath(base, "token"),
		"jwks_uri":               urlutil.MustJoinPath(base, "jwks"),
	})
}

// handleAuthorize accepts any authorization request: no credentials, no
// consent. It mints a fresh code, remembers the nonce that came with the
// request, and sends the browser back to the relying party.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	redirectURI := q.Get("redirect_uri")
	state := q.Get("state")
	nonce := q.Get("nonce")

	target, err := url.Parse(redirectURI)
	if err != nil || redirectURI == "" {
		jsonwriter.WriteBadRequest(w, "Missing or invalid redirect_uri")
		return
	}

	code := uuid.NewString()
	s.mu.Lock()
	s.codes[code] = nonce
	s.mu.Unlock()

	callback := target.Query()
	callback.Set("code", code)
	callback.Set("state", state)
	callback.Set("nonce", nonce)
	target.RawQuery = callback.Encode()

	log.LogDebugWithFields("mockidp", "Issued authorization code", map[string]any{
		"code":  code,
		"state": state,
	})
	http.Redirect(w, r, target.String(), http.StatusFound)
}

// handleToken exchanges a code for tokens. Codes are single-use; an unknown
// or replayed code gets a 400 invalid_grant instead of an undefined lookup.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		jsonwriter.WriteBadRequest(w, "Malformed form body")
		return
	}
	code := r.PostFormValue("code")

	s.mu.Lock()
	nonce, ok := s.codes[code]
	delete(s.codes, code)
	s.mu.Unlock()
	if !ok {
		jsonwriter.WriteError(w, http.StatusBadRequest, "invalid_grant", "Unknown authorization code")
		return
	}

	if s.NonceOverride != "" {
		nonce = s.NonceOverride
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"aud":   s.cfg.ClientID,
		"iss":   "http://" + r.Host,
		"sub":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"name":  s.cfg.Name,
		"email": s.cfg.Email,
		"nonce": nonce,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = keyID
	idToken, err := token.SignedString(s.key)
	if err != nil {
		log.LogError("Failed to sign id token: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to sign id token")
		return
	}

	_ = jsonwriter.Write(w, map[string]string{
		"access_token": uuid.NewString(),
		"token_type":   "Bearer",
		"id_token":     idToken,
	})
}

func (s *Server) handleJWKS(w http.ResponseWriter, r *http.Request) {
	_ = jsonwriter.Write(w, s.jwks)
}
