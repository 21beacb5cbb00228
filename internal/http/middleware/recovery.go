package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/juggajay/site-proof-sub006/internal/domain"
	"go.uber.org/zap"
)

// Recovery turns a panicking handler into a 500 envelope
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("request_id", r.Header.Get(requestIDHeader)),
					zap.ByteString("stack", debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, domain.CodeInternal, "an unexpected error occurred")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
