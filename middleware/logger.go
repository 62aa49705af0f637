package middleware

import (
	"context"
	"net/http"
	"time"

	"lyrics-resolver-go/logcolors"
	"lyrics-resolver-go/stats"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

const requestIDKey contextKey = "requestID"

// ResponseRecorder captures the status code and body size of a response
type ResponseRecorder struct {
	http.ResponseWriter
	StatusCode int
	BodySize   int
}

// NewResponseRecorder wraps w, defaulting the status to 200
func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{ResponseWriter: w, StatusCode: http.StatusOK}
}

func (r *ResponseRecorder) WriteHeader(code int) {
	r.StatusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *ResponseRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.BodySize += n
	return n, err
}

// RequestID returns the ID assigned to the request by LoggingMiddleware
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// LoggingMiddleware assigns a request ID, logs each request on completion and
// feeds the request counters
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := NewResponseRecorder(w)
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))

		elapsed := time.Since(start)
		s := stats.Get()
		s.RecordRequest(r.URL.Path)
		s.RecordStatusCode(rec.StatusCode)
		s.RecordResponseTime(elapsed, r.URL.Path)

		color := getStatusColor(rec.StatusCode)
		log.WithFields(log.Fields{
			"request_id": id,
			"remote":     r.RemoteAddr,
			"bytes":      rec.BodySize,
		}).Infof("%s %s %s %s%d%s %v",
			logcolors.LogRequest, r.Method, r.URL.Path, color, rec.StatusCode, logcolors.Reset, elapsed.Round(time.Millisecond))
	})
}

func getStatusColor(code int) string {
	switch {
	case code >= 200 && code < 300:
		return logcolors.Green
	case code >= 300 && code < 400:
		return logcolors.Cyan
	case code >= 400 && code < 500:
		return logcolors.Yellow
	case code >= 500:
		return logcolors.Red
	default:
		return logcolors.Reset
	}
}
