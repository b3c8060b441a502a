package middleware

import (
	"crypto/subtle"
	"net/http"

	"beer-and-hike/backend/internal/logging"
)

// APIKeyHeader carries the admin key on admin routes
const APIKeyHeader = "X-API-Key"

// AdminKeyMiddleware admits requests whose X-API-Key matches apiKey.
// An empty apiKey turns the admin routes off.
func AdminKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				http.Error(w, "Admin API disabled", http.StatusForbidden)
				return
			}

			provided := r.Header.Get(APIKeyHeader)
			if provided == "" {
				http.Error(w, "Unauthorized. Missing API Key", http.StatusUnauthorized)
				return
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				logging.Warn("Rejected admin request with invalid API key",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, "Unauthorized. Invalid API Key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
