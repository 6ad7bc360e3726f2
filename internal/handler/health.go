package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Bidon15/socialauth/internal/pkg/response"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Component is a named dependency checked by Ready.
type Component struct {
	Name   string
	Pinger Pinger
}

// Health returns a simple health check that always succeeds if the server is running.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	}
}

// Ready returns a readiness check that pings every component in order.
func Ready(components ...Component) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		body := map[string]string{"status": "ok"}
		for _, c := range components {
			if err := c.Pinger.Ping(ctx); err != nil {
				response.JSON(w, http.StatusServiceUnavailable, map[string]string{
					"status":    "error",
					"component": c.Name,
				})
				return
			}
			body[c.Name] = "connected"
		}

		response.OK(w, body)
	}
}
