package httpCors

import (
	"github.com/rs/cors"
)

// CorsSettings allows the browser extension origins to call the JSON API.
// An empty list allows any origin without credentials.
func CorsSettings(origins []string) *cors.Cors {
	opts := cors.Options{
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedOrigins:   origins,
		AllowCredentials: len(origins) > 0,
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Authorization"},
		MaxAge:           600,
	}
	if len(origins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return cors.New(opts)
}
