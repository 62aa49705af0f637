package main

import (
	"net/http"

	"lyrics-resolver-go/middleware"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// setupRoutes configures all HTTP routes for the API
func (a *app) setupRoutes(router *mux.Router) {
	admin := middleware.AdminOnly(a.conf.Server.AdminToken)

	// Resolution endpoints
	router.HandleFunc("/resolve", a.resolveLyrics).Methods(http.MethodGet)
	router.HandleFunc("/verify", a.verifyLyrics).Methods(http.MethodPost)

	// Cache management endpoints
	router.HandleFunc("/cache", admin(a.getCacheSummary)).Methods(http.MethodGet, http.MethodDelete)
	router.HandleFunc("/cache/backup", admin(a.backupCache)).Methods(http.MethodPost)
	router.HandleFunc("/cache/backups", admin(a.listBackups)).Methods(http.MethodGet)
	router.HandleFunc("/cache/restore", admin(a.restoreCache)).Methods(http.MethodPost)
	router.HandleFunc("/cache/clear", admin(a.clearCache)).Methods(http.MethodPost)

	// Health and stats endpoints
	router.HandleFunc("/health", a.getHealthStatus).Methods(http.MethodGet)
	router.HandleFunc("/stats", admin(a.getStats)).Methods(http.MethodGet)

	// Circuit breaker endpoints
	router.HandleFunc("/circuit-breaker", admin(a.getCircuitBreakerStatus)).Methods(http.MethodGet)
	router.HandleFunc("/circuit-breaker/reset", admin(a.resetCircuitBreaker)).Methods(http.MethodPost)

	// Help endpoint
	router.HandleFunc("/", a.helpHandler)
}

// handler builds the full middleware chain around the router:
// logging, then CORS, then API key, then rate limiting
func (a *app) handler() http.Handler {
	router := mux.NewRouter()
	a.setupRoutes(router)

	var h http.Handler = router
	h = middleware.RateLimitMiddleware(a.limiter, a.conf.Server.APIKey)(h)
	h = middleware.APIKeyMiddleware(a.conf.Server.APIKey, a.conf.Server.APIKeyRequired, []string{"/health", "/"})(h)
	h = cors.New(cors.Options{
		AllowedOrigins:   []string{"https://music.youtube.com", "http://localhost:3000"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "X-API-Key", "Authorization", middleware.RequestIDHeader},
		AllowCredentials: true,
	}).Handler(h)
	return middleware.LoggingMiddleware(h)
}
