package middleware

import (
	"github.com/go-chi/cors"
)

// CORS returns the options for the editor front end calling the gateway.
// The API only reads and posts, and the rate-limit headers are exposed so
// the editor can show when generation becomes available again. A "*" origin
// turns off credentials, which browsers refuse with a wildcard.
func CORS(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	allowCreds := true
	for _, o := range allowedOrigins {
		if o == "*" {
			allowCreds = false
			break
		}
	}

	return cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "X-RateLimit-Scope"},
		AllowCredentials: allowCreds,
		MaxAge:           300,
	}
}
