package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubResolver struct {
	members map[uuid.UUID]*access.Membership
	err     error
	calls   int
}

func (s *stubResolver) Resolve(_ context.Context, userID uuid.UUID) (*access.Membership, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	m, ok := s.members[userID]
	if !ok {
		return nil, domain.NewNotFoundError("user")
	}
	return m, nil
}

func TestMiddleware_Authenticate(t *testing.T) {
	tokens := testTokens()
	active := uuid.New()
	resolver := &stubResolver{members: map[uuid.UUID]*access.Membership{
		active: {UserID: active, CompanyRole: domain.RoleViewer},
	}}
	mw := NewMiddleware(tokens, resolver, zap.NewNop())

	var seen *access.Membership
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = MustMembership(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("valid token resolves membership", func(t *testing.T) {
		token, _, err := tokens.Issue(active, "")
		require.NoError(t, err)

		rec := serve("Bearer " + token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, active, seen.UserID)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := serve("")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var body domain.APIResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, domain.CodeUnauthorized, body.Error.Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		rec := serve("Basic dXNlcjpwYXNz")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("inactive or unknown user", func(t *testing.T) {
		token, _, err := tokens.Issue(uuid.New(), "")
		require.NoError(t, err)

		rec := serve("Bearer " + token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("resolver failure is internal", func(t *testing.T) {
		failing := NewMiddleware(tokens, &stubResolver{err: errors.New("connection reset")}, zap.NewNop())
		token, _, err := tokens.Issue(active, "")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		failing.Authenticate(http.NotFoundHandler()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
