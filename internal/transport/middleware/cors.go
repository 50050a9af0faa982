package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS lets browser clients on any origin call the API with a bearer token.
// Preflight requests are answered here and never reach the auth middleware.
var CORS = cors.Handler(cors.Options{
	AllowedOrigins: []string{"*"},
	AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	AllowedHeaders: []string{"Authorization", "Content-Type", TraceHeader},
	ExposedHeaders: []string{TraceHeader, "Content-Disposition"},
	MaxAge:         300,
})
