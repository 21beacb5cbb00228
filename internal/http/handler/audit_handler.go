package handler

import (
	"net/http"
	"time"

	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/service"
	"go.uber.org/zap"
)

// AuditHandler exposes the per-project audit trail
type AuditHandler struct {
	auditService *service.AuditLogService
	logger       *zap.Logger
}

func NewAuditHandler(auditService *service.AuditLogService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{auditService: auditService, logger: logger}
}

// List godoc
// @Summary List audit logs
// @Description Returns the audit trail of a project, newest first.
// @Tags Audit
// @Produce json
// @Param projectId query string true "Project ID" format(uuid)
// @Param userId query string false "Filter by acting user" format(uuid)
// @Param action query string false "Filter by action" Enums(create, update, delete, transition, assign)
// @Param entityType query string false "Filter by entity type"
// @Param entityId query string false "Filter by entity ID" format(uuid)
// @Param startTime query string false "From (RFC3339)"
// @Param endTime query string false "Until (RFC3339)"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page (max 200)" default(20)
// @Success 200 {object} domain.APIResponse{data=[]domain.AuditLogDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Security BearerAuth
// @Router /audit [get]
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := requiredProjectID(w, r)
	if !ok {
		return
	}

	q := service.AuditLogQuery{
		ProjectID:  projectID,
		EntityType: r.URL.Query().Get("entityType"),
	}
	if a := r.URL.Query().Get("action"); a != "" {
		action := domain.AuditAction(a)
		q.Action = &action
	}
	if q.UserID, ok = queryUUID(w, r, "userId"); !ok {
		return
	}
	if q.EntityID, ok = queryUUID(w, r, "entityId"); !ok {
		return
	}
	if q.StartTime, ok = queryTime(w, r, "startTime"); !ok {
		return
	}
	if q.EndTime, ok = queryTime(w, r, "endTime"); !ok {
		return
	}

	page, err := h.auditService.List(r.Context(), membership(r), q, pageRequest(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondPage(w, page)
}

func queryTime(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, domain.APIResponse{
			Success: false,
			Error: &domain.APIError{
				Code:    domain.CodeValidation,
				Message: name + " must be an RFC3339 timestamp",
				Details: map[string]interface{}{"field": name},
			},
		})
		return nil, false
	}
	return &t, true
}
