package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	applog "github.com/juggajay/site-proof-sub006/internal/logger"
	"go.uber.org/zap"
)

// MembershipResolver turns a verified user id into a Membership
type MembershipResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*access.Membership, error)
}

// Middleware authenticates bearer tokens and resolves the caller's membership
// once per request
type Middleware struct {
	tokens   *TokenService
	resolver MembershipResolver
	logger   *zap.Logger
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(tokens *TokenService, resolver MembershipResolver, logger *zap.Logger) *Middleware {
	return &Middleware{
		tokens:   tokens,
		resolver: resolver,
		logger:   logger,
	}
}

// Authenticate requires a valid bearer token for an active user. Unknown or
// inactive users are rejected with 401 like a bad token.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		token, ok := bearerToken(r)
		if !ok {
			writeUnauthorized(w, "missing or malformed authorization header")
			return
		}

		claims, err := m.tokens.Validate(token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			if errors.Is(err, ErrExpiredToken) {
				writeUnauthorized(w, "token has expired")
				return
			}
			writeUnauthorized(w, "invalid token")
			return
		}

		userID, _ := claims.UserID()
		membership, err := m.resolver.Resolve(r.Context(), userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				m.logger.Warn("token subject does not resolve to an active user",
					zap.String("user_id", userID.String()),
					zap.String("path", r.URL.Path),
				)
				writeUnauthorized(w, "user is not active")
				return
			}
			m.logger.Error("failed to resolve membership",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, domain.CodeInternal, "an unexpected error occurred")
			return
		}

		applog.Annotate(r.Context(),
			zap.String("user_id", userID.String()),
			zap.String("company_id", membership.CompanyID.String()),
		)
		applog.WithActor(m.logger, userID, membership.CompanyID).Debug("request authenticated",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("projects", len(membership.ProjectRoles)),
			zap.Duration("auth_duration", time.Since(start)),
		)

		ctx := WithClaims(r.Context(), claims)
		ctx = WithMembership(ctx, membership)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="siteproof"`)
	writeJSON(w, http.StatusUnauthorized, domain.CodeUnauthorized, message)
}

func writeJSON(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.APIResponse{
		Success: false,
		Error:   &domain.APIError{Code: code, Message: message},
	})
}
