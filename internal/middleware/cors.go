// Package middleware provides the HTTP middleware the tours API runs behind.
package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// preflightMaxAge is how long, in seconds, a browser may cache a preflight.
// Stop edits fire PATCH requests in bursts while an agent drags times around.
const preflightMaxAge = 600

// NewCORSHandler allows the listed origins (scheme and host, no trailing
// slash) to call the API. Browsers must be able to send X-User-ID, which
// carries the acting agent.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-User-ID"},
		MaxAge:         preflightMaxAge,
	})
	return c.Handler
}
