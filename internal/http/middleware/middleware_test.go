package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/auth"
	"github.com/juggajay/site-proof-sub006/internal/config"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func preflight(origin string) *http.Request {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/lots", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	return req
}

func TestCORS(t *testing.T) {
	base := config.CORSConfig{
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	tests := []struct {
		name        string
		origins     []string
		environment string
		origin      string
		wantAllowed bool
	}{
		{"development reflects any origin", nil, "development", "http://localhost:3000", true},
		{"explicit origin allowed", []string{"https://qa.example.com"}, "production", "https://qa.example.com", true},
		{"explicit origin refuses others", []string{"https://qa.example.com"}, "production", "https://evil.example.com", false},
		{"wildcard reflects any origin", []string{"*"}, "production", "https://partner.example.com", true},
		{"production without origins denies", nil, "production", "https://qa.example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.AllowedOrigins = tt.origins
			h := middleware.CORS(&cfg, tt.environment, zap.NewNop())(okHandler)

			rec := serve(h, preflight(tt.origin))
			if tt.wantAllowed {
				assert.Equal(t, tt.origin, rec.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}

	t.Run("request id is exposed", func(t *testing.T) {
		cfg := base
		cfg.AllowedOrigins = []string{"https://qa.example.com"}
		h := middleware.CORS(&cfg, "production", zap.NewNop())(okHandler)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/lots", nil)
		req.Header.Set("Origin", "https://qa.example.com")
		rec := serve(h, req)
		assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "X-Request-Id")
	})
}

func TestSecurityHeaders(t *testing.T) {
	h := middleware.SecurityHeaders(&config.SecurityConfig{
		EnableHSTS:            true,
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		FrameOptions:          "DENY",
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	})(okHandler)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/ncrs", nil))
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestRateLimiter(t *testing.T) {
	newLimiter := func(cfg config.RateLimitConfig) *middleware.RateLimiter {
		return middleware.NewRateLimiter(&cfg, zap.NewNop())
	}
	fromIP := func(path, ip string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = ip + ":40000"
		return req
	}

	t.Run("disabled passes everything", func(t *testing.T) {
		h := newLimiter(config.RateLimitConfig{Enabled: false, RequestsPerMinute: 1}).LimitByIP(okHandler)
		for i := 0; i < 20; i++ {
			assert.Equal(t, http.StatusOK, serve(h, fromIP("/api/v1/lots", "10.0.0.1")).Code)
		}
	})

	t.Run("exceeding the limit returns the envelope", func(t *testing.T) {
		h := newLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}).LimitByIP(okHandler)
		serve(h, fromIP("/api/v1/lots", "10.0.0.2"))
		serve(h, fromIP("/api/v1/lots", "10.0.0.2"))

		rec := serve(h, fromIP("/api/v1/lots", "10.0.0.2"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))

		var body domain.APIResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, "RATE_LIMITED", body.Error.Code)

		// another address has its own budget
		assert.Equal(t, http.StatusOK, serve(h, fromIP("/api/v1/lots", "10.0.0.3")).Code)
	})

	t.Run("whitelisted ip and path are never limited", func(t *testing.T) {
		h := newLimiter(config.RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 1,
			WhitelistIPs:      []string{"127.0.0.1"},
			WhitelistPaths:    []string{"/health/*"},
		}).LimitByIP(okHandler)
		for i := 0; i < 5; i++ {
			assert.Equal(t, http.StatusOK, serve(h, fromIP("/api/v1/lots", "127.0.0.1")).Code)
			assert.Equal(t, http.StatusOK, serve(h, fromIP("/health/ready", "10.0.0.4")).Code)
		}
	})

	t.Run("forwarded address is used", func(t *testing.T) {
		h := newLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1}).LimitByIP(okHandler)
		req := func(forwarded string) *http.Request {
			r := fromIP("/api/v1/lots", "10.0.0.5")
			r.Header.Set("X-Forwarded-For", forwarded)
			return r
		}
		assert.Equal(t, http.StatusOK, serve(h, req("203.0.113.7, 10.0.0.5")).Code)
		assert.Equal(t, http.StatusOK, serve(h, req("203.0.113.8")).Code)
		assert.Equal(t, http.StatusTooManyRequests, serve(h, req("203.0.113.7")).Code)
	})

	t.Run("authenticated requests are keyed by user", func(t *testing.T) {
		h := newLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinuteAuth: 1}).LimitByUser(okHandler)
		as := func(userID uuid.UUID) *http.Request {
			r := fromIP("/api/v1/lots", "10.0.0.6")
			return r.WithContext(auth.WithMembership(r.Context(), &access.Membership{UserID: userID}))
		}
		alice, bob := uuid.New(), uuid.New()
		assert.Equal(t, http.StatusOK, serve(h, as(alice)).Code)
		assert.Equal(t, http.StatusOK, serve(h, as(bob)).Code)
		assert.Equal(t, http.StatusTooManyRequests, serve(h, as(alice)).Code)
	})
}

func TestRecovery(t *testing.T) {
	h := middleware.Recovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil lot")
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/lots", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body domain.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.CodeInternal, body.Error.Code)
	assert.NotContains(t, rec.Body.String(), "nil lot")

	t.Run("abort is re-raised", func(t *testing.T) {
		h := middleware.Recovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler)
		}))
		assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
			serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		})
	})
}

func TestTimeout(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	probe := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, hasDeadline = r.Context().Deadline()
	})

	serve(middleware.Timeout(time.Second)(probe), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, hasDeadline)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)

	serve(middleware.Timeout(0)(probe), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, hasDeadline)

	t.Run("expired deadline is visible downstream", func(t *testing.T) {
		var ctxErr error
		slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
			ctxErr = r.Context().Err()
		})
		serve(middleware.Timeout(10*time.Millisecond)(slow), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.ErrorIs(t, ctxErr, context.DeadlineExceeded)
	})
}

func TestLogging_RequestID(t *testing.T) {
	h := middleware.Logging(zap.NewNop())(okHandler)

	t.Run("generated when absent", func(t *testing.T) {
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
		_, err := uuid.Parse(rec.Header().Get("X-Request-ID"))
		assert.NoError(t, err)
	})

	t.Run("valid incoming id is kept", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-ID", id)
		assert.Equal(t, id, serve(h, req).Header().Get("X-Request-ID"))
	})

	t.Run("malformed incoming id is replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-ID", "<script>")
		got := serve(h, req).Header().Get("X-Request-ID")
		assert.NotEqual(t, "<script>", got)
		_, err := uuid.Parse(got)
		assert.NoError(t, err)
	})
}
