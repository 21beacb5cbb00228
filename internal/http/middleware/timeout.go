package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout puts a deadline on each request's context. Downstream work that
// observes the deadline fails with context.DeadlineExceeded, which handlers
// report as 503; the response itself is never cut off mid-stream.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
