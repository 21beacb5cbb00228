package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/repository"
	"github.com/juggajay/site-proof-sub006/internal/service"
	"go.uber.org/zap"
)

type NCRHandler struct {
	ncrService *service.NCRService
	logger     *zap.Logger
}

func NewNCRHandler(ncrService *service.NCRService, logger *zap.Logger) *NCRHandler {
	return &NCRHandler{ncrService: ncrService, logger: logger}
}

// List godoc
// @Summary List NCRs
// @Description Non-conformance reports of a project. Subcontractor users see NCRs on their assigned lots and NCRs naming them responsible.
// @Tags NCRs
// @Produce json
// @Param projectId query string true "Project ID" format(uuid)
// @Param status query string false "Filter by status" Enums(open, in_progress, closed, closed_concession)
// @Param severity query string false "Filter by severity" Enums(minor, major)
// @Param lotId query string false "Filter by linked lot" format(uuid)
// @Param responsibleUserId query string false "Filter by responsible user" format(uuid)
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page (max 200)" default(20)
// @Success 200 {object} domain.APIResponse{data=[]domain.NCRDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /ncrs [get]
func (h *NCRHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := requiredProjectID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := repository.NCRFilter{}
	if s := q.Get("status"); s != "" {
		status := domain.NCRStatus(s)
		filter.Status = &status
	}
	if s := q.Get("severity"); s != "" {
		severity := domain.NCRSeverity(s)
		filter.Severity = &severity
	}
	if filter.LotID, ok = queryUUID(w, r, "lotId"); !ok {
		return
	}
	if filter.ResponsibleUserID, ok = queryUUID(w, r, "responsibleUserId"); !ok {
		return
	}

	page, err := h.ncrService.List(r.Context(), membership(r), projectID, filter, pageRequest(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondPage(w, page)
}

// Create godoc
// @Summary Raise NCR
// @Description Raises a numbered NCR (NCR-0001, ...) and marks linked lots as having an open NCR. Major NCRs require QM approval and client notification before closure.
// @Tags NCRs
// @Accept json
// @Produce json
// @Param request body domain.CreateNCRRequest true "NCR data"
// @Success 201 {object} domain.APIResponse{data=domain.NCRDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Security BearerAuth
// @Router /ncrs [post]
func (h *NCRHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNCRRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	ncr, err := h.ncrService.Create(r.Context(), membership(r), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusCreated, ncr)
}

// GetByID godoc
// @Summary Get NCR
// @Tags NCRs
// @Produce json
// @Param id path string true "NCR ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.NCRDTO}
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /ncrs/{id} [get]
func (h *NCRHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	ncr, err := h.ncrService.GetByID(r.Context(), membership(r), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, ncr)
}

// Update godoc
// @Summary Update NCR
// @Description Redirects the responsible user, sets the due date or records QM comments.
// @Tags NCRs
// @Accept json
// @Produce json
// @Param id path string true "NCR ID" format(uuid)
// @Param request body domain.UpdateNCRRequest true "Changes"
// @Success 200 {object} domain.APIResponse{data=domain.NCRDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /ncrs/{id} [patch]
func (h *NCRHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateNCRRequest
	h.transition(w, r, &req, func(ctx context.Context, m *access.Membership, id uuid.UUID) (*domain.NCRDTO, error) {
		return h.ncrService.Update(ctx, m, id, &req)
	})
}

// Respond godoc
// @Summary Respond to NCR
// @Description The responsible party records rectification. Moves open NCRs to in_progress.
// @Tags NCRs
// @Accept json
// @Produce json
// @Param id path string true "NCR ID" format(uuid)
// @Param request body domain.RespondNCRRequest true "Response"
// @Success 200 {object} domain.APIResponse{data=domain.NCRDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /ncrs/{id}/respond [post]
func (h *NCRHandler) Respond(w http.ResponseWriter, r *http.Request) {
	var req domain.RespondNCRRequest
	h.transition(w, r, &req, func(ctx context.Context, m *access.Membership, id uuid.UUID) (*domain.NCRDTO, error) {
		return h.ncrService.Respond(ctx, m, id, &req)
	})
}

// QMApprove godoc
// @Summary QM approval
// @Description Quality manager approval of a major NCR.
// @Tags NCRs
// @Accept json
// @Produce json
// @Param id path string true "NCR ID" format(uuid)
// @Param request body domain.QMApproveNCRRequest false "Comments"
// @Success 200 {object} domain.APIResponse{data=domain.NCRDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /ncrs/{id}/qm-approve [post]
func (h *NCRHandler) QMApprove(w http.ResponseWriter, r *http.Request) {
	var req domain.QMApproveNCRRequest
	h.optionalTransition(w, r, &req, func(ctx context.Context, m *access.Membership, id uuid.UUID) (*domain.NCRDTO, error) {
		return h.ncrService.QMApprove(ctx, m, id, &req)
	})
}

// Reject godoc
// @Summary Reject NCR response
// @Description Sends an in-progress NCR back to open and withdraws any QM approval.
// @Tags NCRs
// @Accept json
// @Produce json
// @Param id path string true "NCR ID" format(uuid)
// @Param request body domain.RejectNCRRequest true "Reason"
// @Success 200 {object} domain.APIResponse{data=domain.NCRDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /ncrs/{id}/reject [post]
func (h *NCRHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req domain.RejectNCRRequest
	h.transition(w, r, &req, func(ctx context.Context, m *access.Membership, id uuid.UUID) (*domain.NCRDTO, error) {
		return h.ncrService.Reject(ctx, m, id, &req)
	})
}

// Close godoc
// @Summary Close NCR
// @Description Closes an in-progress NCR, optionally under concession with a justification.
// @Tags NCRs
// @Accept json
// @Produce json
// @Param id path string true "NCR ID" format(uuid)
// @Param request body domain.CloseNCRRequest false "Closure"
// @Success 200 {object} domain.APIResponse{data=domain.NCRDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /ncrs/{id}/close [post]
func (h *NCRHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req domain.CloseNCRRequest
	h.optionalTransition(w, r, &req, func(ctx context.Context, m *access.Membership, id uuid.UUID) (*domain.NCRDTO, error) {
		return h.ncrService.Close(ctx, m, id, &req)
	})
}

// NotifyClient godoc
// @Summary Record client notification
// @Description Records that the client was notified of a major NCR.
// @Tags NCRs
// @Produce json
// @Param id path string true "NCR ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.NCRDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /ncrs/{id}/notify-client [post]
func (h *NCRHandler) NotifyClient(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	ncr, err := h.ncrService.NotifyClient(r.Context(), membership(r), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, ncr)
}

type ncrAction func(ctx context.Context, m *access.Membership, id uuid.UUID) (*domain.NCRDTO, error)

func (h *NCRHandler) transition(w http.ResponseWriter, r *http.Request, req interface{}, action ncrAction) {
	id, ok := urlUUID(w, r, "id")
	if !ok || !decodeAndValidate(w, r, req) {
		return
	}
	h.run(w, r, id, action)
}

func (h *NCRHandler) optionalTransition(w http.ResponseWriter, r *http.Request, req interface{}, action ncrAction) {
	id, ok := urlUUID(w, r, "id")
	if !ok || !decodeOptional(w, r, req) {
		return
	}
	h.run(w, r, id, action)
}

func (h *NCRHandler) run(w http.ResponseWriter, r *http.Request, id uuid.UUID, action ncrAction) {
	ncr, err := action(r.Context(), membership(r), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, ncr)
}
