package main

import (
	"encoding/json"
	"net/http"

	"lyrics-resolver-go/middleware"
)

// APIResponse handles consistent header setting and JSON responses.
// It centralizes X-Cache-Status, X-Source and X-RateLimit-Type.
type APIResponse struct {
	w           http.ResponseWriter
	r           *http.Request
	cacheStatus string
	source      string
}

// Respond creates a response helper from request context
func Respond(w http.ResponseWriter, r *http.Request) *APIResponse {
	return &APIResponse{w: w, r: r}
}

// SetCacheStatus sets the X-Cache-Status header value
func (a *APIResponse) SetCacheStatus(status string) *APIResponse {
	a.cacheStatus = status
	return a
}

// SetSource sets the X-Source header value
func (a *APIResponse) SetSource(source string) *APIResponse {
	a.source = source
	return a
}

func (a *APIResponse) writeHeaders() {
	a.w.Header().Set("Content-Type", "application/json")

	if a.cacheStatus != "" {
		a.w.Header().Set("X-Cache-Status", a.cacheStatus)
	}
	if a.source != "" {
		a.w.Header().Set("X-Source", a.source)
	}
	if tier := middleware.RateLimitType(a.r.Context()); tier != "" {
		a.w.Header().Set("X-RateLimit-Type", tier)
	}
}

// JSON writes headers and encodes data as JSON (200 OK)
func (a *APIResponse) JSON(data interface{}) error {
	a.writeHeaders()
	return json.NewEncoder(a.w).Encode(data)
}

// Status writes headers, sets status code, and encodes data
func (a *APIResponse) Status(statusCode int, data interface{}) error {
	a.writeHeaders()
	a.w.WriteHeader(statusCode)
	return json.NewEncoder(a.w).Encode(data)
}

// Error writes an {"error": message} body with the given status
func (a *APIResponse) Error(statusCode int, message string) error {
	return a.Status(statusCode, map[string]string{"error": message})
}
