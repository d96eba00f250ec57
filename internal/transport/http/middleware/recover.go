package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"contractorpay/internal/transport/http/api"
)

// Recoverer converts handler panics into a 500 response instead of tearing
// down the connection.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic recovered",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				api.Fail(w, http.StatusInternalServerError, "internal_error", "unexpected failure", GetRequestID(r.Context()))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
