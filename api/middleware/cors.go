package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/artmarket-backend/api/responses"
)

var defaultCORSOrigins = []string{"http://localhost:3000"}

// CORS lets the storefront and partner dashboards call the API from the
// browser. Credentials are only allowed for an explicit origin list; a "*"
// entry opens the API to any origin without them.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = defaultCORSOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, responses.RequestIDHeader},
		ExposedHeaders:   []string{responses.RequestIDHeader, replayHeader, "Retry-After"},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           300,
	})
}
