package server

import (
	"log/slog"
	"net/http"
	"time"
)

// maxArgLogLen is the maximum length for logged query strings before truncation.
const maxArgLogLen = 200

// slowRequestThreshold is the duration above which requests are logged at WARN level.
const slowRequestThreshold = 100 * time.Millisecond

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware logs all requests with timing.
// Slow requests (>100ms) are logged at WARN level.
// Query strings are truncated to 200 characters.
func LoggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// WebSocket upgrades hijack the connection; the recorder would
		// break them
		if r.URL.Path == "/api/progress" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", duration.Milliseconds(),
		}
		if q := r.URL.RawQuery; q != "" {
			attrs = append(attrs, "query", truncate(q, maxArgLogLen))
		}

		switch {
		case rec.status >= 500:
			logger.Error("request failed", attrs...)
		case duration > slowRequestThreshold:
			logger.Warn("slow request", attrs...)
		default:
			logger.Debug("request completed", attrs...)
		}
	})
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
