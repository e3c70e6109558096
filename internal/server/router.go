package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mkessler/auth-front/internal/log"
)

// NewRouter wires the application's HTTP surface.
func NewRouter(h *AuthHandlers) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)

	r.Get("/auth/login", h.LoginHandler)
	r.Get("/oauth2callback", h.CallbackHandler)
	r.Get("/auth/logout", h.LogoutHandler)
	r.Get("/health", HealthHandler)

	return r
}

// HealthHandler handles health check requests
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.LogDebugWithFields("http", "Request handled", map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		})
	})
}
