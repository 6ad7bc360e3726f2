package middleware

import (
	"context"
	"net/http"

	"github.com/Bidon15/socialauth/internal/auth"
	"github.com/Bidon15/socialauth/internal/pkg/response"
)

// SessionValidator resolves a session token to a user ID.
// Returned errors are written to the client as-is.
type SessionValidator func(ctx context.Context, token string) (userID string, err error)

// RequireSession returns a middleware that rejects requests without a valid
// session cookie and stores the session's user ID in the request context.
func RequireSession(validate SessionValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := validate(r.Context(), auth.SessionToken(r))
			if err != nil {
				response.Error(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
