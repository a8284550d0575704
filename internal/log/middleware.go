package log

import (
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-Id"

	// uuid.Parse also takes the urn and braced forms.
	maxRequestIDLen = 45
)

// requestID keeps a client supplied ID only when it is a well formed UUID.
func requestID(header string) string {
	if len(header) <= maxRequestIDLen {
		if id, err := uuid.Parse(header); err == nil {
			return id.String()
		}
	}
	return uuid.NewString()
}

// Middleware gives every request an ID and a scoped logger in its context,
// then logs one line when the request completes.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := requestID(r.Header.Get(RequestIDHeader))
			w.Header().Set(RequestIDHeader, id)

			log := logger.With("request_id", id)
			r = r.WithContext(NewContext(r.Context(), log))

			m := httpsnoop.CaptureMetrics(next, w, r)
			log.Info("handled request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", m.Code,
				"bytes", m.Written,
				"duration", m.Duration.String(),
			)
		})
	}
}
