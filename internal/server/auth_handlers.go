package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mkessler/auth-front/internal/config"
	"github.com/mkessler/auth-front/internal/cookie"
	"github.com/mkessler/auth-front/internal/crypto"
	"github.com/mkessler/auth-front/internal/emailutil"
	"github.com/mkessler/auth-front/internal/idp"
	jsonwriter "github.com/mkessler/auth-front/internal/json"
	"github.com/mkessler/auth-front/internal/log"
	"github.com/mkessler/auth-front/internal/providertoken"
	"github.com/mkessler/auth-front/internal/statestore"
)

// exchangeTimeout bounds the code exchange plus JWKS fetch on the callback.
const exchangeTimeout = 30 * time.Second

// AuthHandlers provides the login, callback, and logout HTTP handlers with
// dependency injection.
type AuthHandlers struct {
	secrets  *config.Secrets
	store    statestore.Store
	clients  *idp.Factory
	tokens   providertoken.Codec
	sessions crypto.TokenSigner
}

// NewAuthHandlers creates new auth handlers. cookieSecret signs both the
// provider token and the session cookie; secrets may be nil when no secrets
// source is configured, in which case every login fails with a config error.
func NewAuthHandlers(secrets *config.Secrets, cookieSecret []byte, store statestore.Store, clients *idp.Factory) *AuthHandlers {
	return &AuthHandlers{
		secrets:  secrets,
		store:    store,
		clients:  clients,
		tokens:   providertoken.NewCodec(cookieSecret),
		sessions: crypto.NewTokenSigner(cookieSecret, 0),
	}
}

// ProviderTokens exposes the codec so callers can mint login-initiation
// tokens for /auth/login URLs.
func (h *AuthHandlers) ProviderTokens() providertoken.Codec {
	return h.tokens
}

// LoginHandler begins the authorization-code flow: it validates the signed
// provider token and the provider's configuration, records the pending
// attempt, and redirects the browser to the provider's authorization
// endpoint.
func (h *AuthHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("provider")
	if raw == "" {
		// No provider token at all is a plain navigation, not an error.
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	payload, err := h.tokens.Decode(raw)
	if err != nil {
		log.LogWarnWithFields("auth", "Rejected login with bad provider token", map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteBadRequest(w, "Error decoding provider token: "+err.Error())
		return
	}

	providerCfg, err := h.secrets.Provider(payload.Provider)
	if err != nil {
		log.LogErrorWithFields("auth", "Login rejected by provider validation", map[string]any{
			"provider": payload.Provider,
			"error":    err.Error(),
		})
		jsonwriter.WriteBadRequest(w, err.Error())
		return
	}

	client, err := h.clients.Client(r.Context(), providerCfg, h.secrets.RedirectURI)
	if err != nil {
		log.LogError("Failed to build client for %q: %v", payload.Provider, err)
		jsonwriter.WriteBadRequest(w, err.Error())
		return
	}

	state, err := crypto.GenerateSecureToken()
	if err != nil {
		jsonwriter.WriteInternalServerError(w, "Failed to generate state")
		return
	}
	nonce, err := crypto.GenerateSecureToken()
	if err != nil {
		jsonwriter.WriteInternalServerError(w, "Failed to generate nonce")
		return
	}

	entry := statestore.Entry{
		Provider:    payload.Provider,
		Nonce:       nonce,
		RedirectURI: h.secrets.RedirectURI,
		CreatedAt:   time.Now(),
	}
	if err := h.store.Put(r.Context(), state, entry, statestore.DefaultTTL); err != nil {
		log.LogError("Failed to store login state: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to store login state")
		return
	}

	log.LogInfoWithFields("auth", "Login redirect issued", map[string]any{
		"provider": payload.Provider,
	})
	http.Redirect(w, r, client.AuthCodeURL(state, nonce), http.StatusFound)
}

// CallbackHandler receives the provider's redirect and finishes the flow:
// state correlation, code exchange, ID token verification, and session
// establishment. Failures that happen before any redirect-worthy outcome are
// 400s; post-redirect provider errors land in the session's error field so
// the user still lands somewhere.
func (h *AuthHandlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if state == "" {
		jsonwriter.WriteBadRequest(w, "Missing state parameter")
		return
	}

	origin := h.secrets.RedirectOrigin()

	entry, err := h.store.Take(r.Context(), state)
	if err != nil {
		// Unknown, expired, or replayed state: the provider for this attempt
		// cannot be resolved.
		log.LogWarnWithFields("auth", "Callback with unknown state", map[string]any{
			"state": state,
		})
		h.finishLogin(w, r, SessionState{
			Error:  "Missing provider",
			Origin: origin,
		})
		return
	}

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		log.LogWarnWithFields("auth", "Provider returned error on callback", map[string]any{
			"provider": entry.Provider,
			"error":    errMsg,
		})
		h.finishLogin(w, r, SessionState{
			Provider: entry.Provider,
			Error:    errMsg,
			Origin:   origin,
		})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		jsonwriter.WriteBadRequest(w, "Missing code parameter")
		return
	}

	providerCfg, err := h.secrets.Provider(entry.Provider)
	if err != nil {
		jsonwriter.WriteBadRequest(w, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exchangeTimeout)
	defer cancel()

	client, err := h.clients.Client(ctx, providerCfg, entry.RedirectURI)
	if err != nil {
		log.LogError("Failed to build client for %q: %v", entry.Provider, err)
		jsonwriter.WriteBadRequest(w, err.Error())
		return
	}

	token, err := client.Exchange(ctx, code)
	if err != nil {
		log.LogError("Code exchange failed: %v", err)
		jsonwriter.WriteBadRequest(w, "Failed to exchange authorization code")
		return
	}

	claims, err := client.VerifyIDToken(ctx, token, entry.Nonce)
	if err != nil {
		if errors.Is(err, idp.ErrNonceMismatch) {
			log.LogErrorWithFields("auth", "Nonce mismatch on callback", map[string]any{
				"provider": entry.Provider,
			})
			jsonwriter.WriteBadRequest(w, "ID token nonce mismatch")
			return
		}
		log.LogError("ID token verification failed: %v", err)
		jsonwriter.WriteBadRequest(w, "Failed to verify ID token")
		return
	}

	log.LogInfoWithFields("auth", "User authenticated", map[string]any{
		"provider": entry.Provider,
		"email":    claims.Email(),
	})
	h.finishLogin(w, r, SessionState{
		Email:    emailutil.Normalize(claims.Email()),
		Name:     claims.Name(),
		Subject:  claims.Subject(),
		Provider: entry.Provider,
		Origin:   origin,
		LoggedIn: true,
	})
}

// LogoutHandler clears the session and sends the browser home. Logging out
// twice is not an error.
func (h *AuthHandlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	cookie.ClearSession(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// Session reads and verifies the session cookie from a request.
func (h *AuthHandlers) Session(r *http.Request) (SessionState, error) {
	value, err := cookie.GetSession(r)
	if err != nil {
		return SessionState{}, err
	}
	var session SessionState
	if err := h.sessions.Verify(value, &session); err != nil {
		return SessionState{}, err
	}
	return session, nil
}

// finishLogin writes the session cookie and lands the browser at the
// application root.
func (h *AuthHandlers) finishLogin(w http.ResponseWriter, r *http.Request, session SessionState) {
	value, err := h.sessions.Sign(session)
	if err != nil {
		log.LogError("Failed to sign session: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to create session")
		return
	}

	secure := strings.HasPrefix(session.Origin, "https://")
	cookie.SetSession(w, value, secure)
	http.Redirect(w, r, "/", http.StatusFound)
}
