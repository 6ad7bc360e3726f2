// Package middleware provides HTTP middleware for the auth API.
package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/Bidon15/socialauth/internal/config"
)

// CORS returns a configured CORS middleware handler.
// Credentials are allowed so browsers send the session cookie.
func CORS(cfg config.CORSConfig) func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           cfg.MaxAge,
	})
}
