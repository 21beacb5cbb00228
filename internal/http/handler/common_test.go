package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) domain.APIResponse {
	t.Helper()
	var body domain.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantStatus     int
		wantCode       string
		wantField      string
		wantRetryAfter string
	}{
		{
			name:       "validation carries its field",
			err:        domain.NewValidationError(domain.CodeAreaZoneRequired, "areaZone", "area lots need an area zone"),
			wantStatus: http.StatusBadRequest,
			wantCode:   domain.CodeAreaZoneRequired,
			wantField:  "areaZone",
		},
		{
			name:       "forbidden",
			err:        domain.NewForbiddenError(domain.CodeInsufficientRole, "role may not approve"),
			wantStatus: http.StatusForbidden,
			wantCode:   domain.CodeInsufficientRole,
		},
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("loading lot: %w", domain.NewNotFoundError("lot")),
			wantStatus: http.StatusNotFound,
			wantCode:   domain.CodeNotFound,
		},
		{
			name:       "conflict",
			err:        domain.NewConflictError(domain.CodeDuplicateLotNumber, "lot number already used"),
			wantStatus: http.StatusConflict,
			wantCode:   domain.CodeDuplicateLotNumber,
		},
		{
			name:       "gorm record not found",
			err:        gorm.ErrRecordNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   domain.CodeNotFound,
		},
		{
			name:       "gorm duplicate key",
			err:        gorm.ErrDuplicatedKey,
			wantStatus: http.StatusConflict,
			wantCode:   domain.CodeConflict,
		},
		{
			name:           "deadline exceeded",
			err:            fmt.Errorf("query: %w", context.DeadlineExceeded),
			wantStatus:     http.StatusServiceUnavailable,
			wantCode:       domain.CodeInternal,
			wantRetryAfter: "1",
		},
		{
			name:       "untyped error is hidden",
			err:        errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   domain.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondError(rec, zap.NewNop(), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeEnvelope(t, rec)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.NotContains(t, body.Error.Message, "pq:")
			assert.Equal(t, tt.wantRetryAfter, rec.Header().Get("Retry-After"))
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, body.Error.Details["field"])
			}
		})
	}
}

type sampleRequest struct {
	Name  string `json:"name" validate:"required,max=5"`
	Count int    `json:"count" validate:"gte=0"`
}

func TestDecodeAndValidate(t *testing.T) {
	decode := func(body string) (*httptest.ResponseRecorder, bool, sampleRequest) {
		var req sampleRequest
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		ok := decodeAndValidate(rec, r, &req)
		return rec, ok, req
	}

	t.Run("valid body", func(t *testing.T) {
		_, ok, req := decode(`{"name":"pour","count":2}`)
		require.True(t, ok)
		assert.Equal(t, "pour", req.Name)
	})

	t.Run("failing rule reports the json field", func(t *testing.T) {
		rec, ok, _ := decode(`{"name":"too long","count":1}`)
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeEnvelope(t, rec)
		assert.Equal(t, domain.CodeValidation, body.Error.Code)
		assert.Equal(t, "name", body.Error.Details["field"])
	})

	t.Run("wrong type reports the field", func(t *testing.T) {
		rec, ok, _ := decode(`{"name":"a","count":"many"}`)
		require.False(t, ok)
		assert.Equal(t, "count", decodeEnvelope(t, rec).Error.Details["field"])
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		rec, ok, _ := decode(`{"name":"a","status":"closed"}`)
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		rec, ok, _ := decode(`{"name":`)
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDecodeOptional(t *testing.T) {
	var req struct {
		Notes string `json:"notes"`
	}
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	assert.True(t, decodeOptional(rec, r, &req))
	assert.Empty(t, req.Notes)
}

func TestPageRequest(t *testing.T) {
	tests := []struct {
		query string
		want  domain.PageRequest
	}{
		{"", domain.PageRequest{Page: 1, Limit: defaultPageSize, SortOrder: "desc"}},
		{"page=3&limit=50&sortBy=createdAt&sortOrder=ASC", domain.PageRequest{Page: 3, Limit: 50, SortBy: "createdAt", SortOrder: "asc"}},
		{"page=-1&limit=5000", domain.PageRequest{Page: 1, Limit: maxPageSize, SortOrder: "desc"}},
		{"page=abc&limit=0", domain.PageRequest{Page: 1, Limit: defaultPageSize, SortOrder: "desc"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			assert.Equal(t, tt.want, pageRequest(r))
		})
	}
}

func TestURLAndQueryParams(t *testing.T) {
	withParam := func(value string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", value)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	t.Run("malformed path id reads as not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_, ok := urlUUID(rec, withParam("not-a-uuid"), "id")
		assert.False(t, ok)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("valid path id", func(t *testing.T) {
		id := uuid.New()
		got, ok := urlUUID(httptest.NewRecorder(), withParam(id.String()), "id")
		require.True(t, ok)
		assert.Equal(t, id, got)
	})

	t.Run("projectId is required", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_, ok := requiredProjectID(rec, httptest.NewRequest(http.MethodGet, "/lots", nil))
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "projectId", decodeEnvelope(t, rec).Error.Details["field"])
	})

	t.Run("malformed filter id is a validation error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_, ok := queryUUID(rec, httptest.NewRequest(http.MethodGet, "/ncrs?lotId=42", nil), "lotId")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
