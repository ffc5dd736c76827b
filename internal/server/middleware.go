// HTTP middleware: access logging and panic recovery.

package server

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/graphdesk/graphdesk/internal/server/reqctx"
)

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(statusCode int) {
	if sr.status == 0 {
		sr.status = statusCode
	}
	sr.ResponseWriter.WriteHeader(statusCode)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	return sr.ResponseWriter.Write(b)
}

// Unwrap returns the underlying ResponseWriter for middleware that needs it.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// withAccessLog logs one line per request at debug level, errors at warn.
func withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(sr, r)
		status := sr.status
		if status == 0 {
			status = http.StatusOK
		}
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"dur", time.Since(start),
			"ip", reqctx.GetClientIP(r),
		}
		if status >= 500 {
			slog.Warn("http", attrs...)
		} else {
			slog.Debug("http", attrs...)
		}
	})
}

// withRecovery converts a handler panic into a 500 instead of killing the
// connection, and logs the stack.
func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Handler panic", "panic", rec, "path", r.URL.Path, "stack", string(debug.Stack()))
				http.Error(w, `{"error":{"code":"INTERNAL_ERROR","message":"internal error"}}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
