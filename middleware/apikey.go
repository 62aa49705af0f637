package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"lyrics-resolver-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// APIKeyMiddleware creates middleware that requires X-API-Key header when enabled.
// If required is false, all requests pass through without authentication.
// If required is true but apiKey is empty, logs a warning and allows all requests.
// Public paths (like /health) are always allowed; a trailing * matches a prefix.
func APIKeyMiddleware(apiKey string, required bool, publicPaths []string) func(http.Handler) http.Handler {
	exact := make(map[string]bool)
	var prefixes []string
	for _, path := range publicPaths {
		if prefix, ok := strings.CutSuffix(path, "*"); ok {
			prefixes = append(prefixes, prefix)
			continue
		}
		exact[path] = true
	}

	isPublic := func(path string) bool {
		if exact[path] {
			return true
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !required {
				next.ServeHTTP(w, r)
				return
			}

			if apiKey == "" {
				log.Warnf("%s API key required but not configured, allowing request", logcolors.LogAPIKey)
				next.ServeHTTP(w, r)
				return
			}

			path := r.URL.Path
			if isPublic(path) {
				next.ServeHTTP(w, r)
				return
			}

			providedKey := r.Header.Get("X-API-Key")
			if providedKey == "" {
				log.Warnf("%s Missing API key from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, path)
				writeJSONError(w, http.StatusUnauthorized, `{"error":"API key required","message":"Provide a valid API key via X-API-Key header"}`)
				return
			}

			if !secretEqual(providedKey, apiKey) {
				log.Warnf("%s Invalid API key from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, path)
				writeJSONError(w, http.StatusUnauthorized, `{"error":"Invalid API key","message":"The provided API key is not valid"}`)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AdminOnly guards operator endpoints with the admin token, accepted either
// raw or as a Bearer value in the Authorization header. With no token
// configured the endpoints are disabled.
func AdminOnly(token string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				writeJSONError(w, http.StatusForbidden, `{"error":"Admin endpoints are disabled","message":"Set ADMIN_TOKEN to enable them"}`)
				return
			}

			provided := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if provided == "" || !secretEqual(provided, token) {
				log.Warnf("%s Unauthorized admin request from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, r.URL.Path)
				writeJSONError(w, http.StatusUnauthorized, `{"error":"Unauthorized"}`)
				return
			}
			next(w, r)
		}
	}
}

func secretEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func writeJSONError(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
