package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/auth"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
	maxJSONBody     = 1 << 20

	// nothing escapes a timed out transaction, so the request is safe to repeat
	timeoutRetryAfter = "1"
)

var validate = newValidator()

// newValidator reports fields by their json names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func respondJSON(w http.ResponseWriter, status int, body domain.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// respondData writes a successful envelope
func respondData(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, domain.APIResponse{Success: true, Data: data})
}

// respondPage writes a list envelope with pagination metadata
func respondPage[T any](w http.ResponseWriter, page *domain.Paged[T]) {
	items := page.Items
	if items == nil {
		items = []T{}
	}
	respondJSON(w, http.StatusOK, domain.APIResponse{Success: true, Data: items, Pagination: page.Pagination})
}

func respondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// respondWithError sends an error envelope with an explicit status and code
func respondWithError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, domain.APIResponse{
		Success: false,
		Error:   &domain.APIError{Code: code, Message: message},
	})
}

// statusFor maps an error kind to its HTTP status
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps typed errors to the envelope. Anything untyped is logged
// and reported as a 500 without leaking its message.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var de *domain.Error
	switch {
	case errors.As(err, &de) && de.Kind != domain.KindInternal:
		details := de.Details
		if de.Field != "" {
			if details == nil {
				details = map[string]interface{}{}
			}
			details["field"] = de.Field
		}
		respondJSON(w, statusFor(de.Kind), domain.APIResponse{
			Success: false,
			Error:   &domain.APIError{Code: de.Code, Message: de.Message, Details: details},
		})
	case errors.Is(err, gorm.ErrRecordNotFound):
		respondWithError(w, http.StatusNotFound, domain.CodeNotFound, "resource not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		respondWithError(w, http.StatusConflict, domain.CodeConflict, "resource already exists")
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("request deadline exceeded", zap.Error(err))
		w.Header().Set("Retry-After", timeoutRetryAfter)
		respondWithError(w, http.StatusServiceUnavailable, domain.CodeInternal, "request timed out, retry the request")
	default:
		logger.Error("unhandled error", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, domain.CodeInternal, "an unexpected error occurred")
	}
}

// respondValidationError reports every failing field; the first one is also
// exposed as details.field
func respondValidationError(w http.ResponseWriter, err error) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		respondWithError(w, http.StatusBadRequest, domain.CodeValidation, err.Error())
		return
	}

	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fieldPath(fe)] = formatValidationError(fe)
	}
	first := fieldPath(ve[0])
	respondJSON(w, http.StatusBadRequest, domain.APIResponse{
		Success: false,
		Error: &domain.APIError{
			Code:    domain.CodeValidation,
			Message: fmt.Sprintf("%s: %s", first, fields[first]),
			Details: map[string]interface{}{"field": first, "fields": fields},
		},
	})
}

// fieldPath drops the top-level struct name from the namespace
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "max":
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

// decodeAndValidate reads a JSON body into req and validates it. It writes the
// error response itself and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			respondJSON(w, http.StatusBadRequest, domain.APIResponse{
				Success: false,
				Error: &domain.APIError{
					Code:    domain.CodeValidation,
					Message: fmt.Sprintf("%s has the wrong type", typeErr.Field),
					Details: map[string]interface{}{"field": typeErr.Field},
				},
			})
			return false
		}
		respondWithError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body: malformed JSON")
		return false
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return false
	}
	return true
}

// decodeOptional accepts an empty body as the zero request
func decodeOptional(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if r.ContentLength == 0 {
		if err := validate.Struct(req); err != nil {
			respondValidationError(w, err)
			return false
		}
		return true
	}
	return decodeAndValidate(w, r, req)
}

// urlUUID parses a chi URL parameter. Malformed ids read as not found.
func urlUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondWithError(w, http.StatusNotFound, domain.CodeNotFound, "resource not found")
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional query parameter
func queryUUID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, domain.APIResponse{
			Success: false,
			Error: &domain.APIError{
				Code:    domain.CodeValidation,
				Message: name + " must be a valid UUID",
				Details: map[string]interface{}{"field": name},
			},
		})
		return nil, false
	}
	return &id, true
}

// requiredProjectID reads the mandatory projectId query parameter
func requiredProjectID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := queryUUID(w, r, "projectId")
	if !ok {
		return uuid.Nil, false
	}
	if id == nil {
		respondJSON(w, http.StatusBadRequest, domain.APIResponse{
			Success: false,
			Error: &domain.APIError{
				Code:    domain.CodeValidation,
				Message: "projectId is required",
				Details: map[string]interface{}{"field": "projectId"},
			},
		})
		return uuid.Nil, false
	}
	return *id, true
}

// pageRequest reads page, limit, sortBy and sortOrder
func pageRequest(r *http.Request) domain.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	order := strings.ToLower(q.Get("sortOrder"))
	if order != "asc" {
		order = "desc"
	}
	return domain.PageRequest{Page: page, Limit: limit, SortBy: q.Get("sortBy"), SortOrder: order}
}

// membership returns the caller resolved by the auth middleware
func membership(r *http.Request) *access.Membership {
	m, _ := auth.MembershipFromContext(r.Context())
	return m
}
