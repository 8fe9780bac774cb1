package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS applies the allowed origin policy from YORI_CORS_ORIGINS.
func CORS(origins string) func(http.Handler) http.Handler {
	allowed := []string{"*"}
	if trimmed := strings.TrimSpace(origins); trimmed != "" && trimmed != "*" {
		allowed = allowed[:0]
		for _, origin := range strings.Split(trimmed, ",") {
			if o := strings.TrimSpace(origin); o != "" {
				allowed = append(allowed, o)
			}
		}
	}

	return cors.New(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
