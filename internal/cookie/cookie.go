package cookie

import (
	"net/http"

	"github.com/mkessler/auth-front/internal/log"
)

// SessionCookie carries the signed session state for the browser session.
const SessionCookie = "_authfront_user"

// SetSession sets the session cookie. No MaxAge: the session lives as long
// as the browser session, matching the login flow's semantics.
func SetSession(w http.ResponseWriter, value string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})

	log.LogDebugWithFields("cookie", "Session cookie set", map[string]any{
		"secure": secure,
	})
}

// ClearSession removes the session cookie by writing an empty value with an
// immediate expiry.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// GetSession retrieves the session cookie value from the request.
func GetSession(r *http.Request) (string, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}
