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

type DocketHandler struct {
	docketService *service.DocketService
	logger        *zap.Logger
}

func NewDocketHandler(docketService *service.DocketService, logger *zap.Logger) *DocketHandler {
	return &DocketHandler{docketService: docketService, logger: logger}
}

// List godoc
// @Summary List dockets
// @Description Daily dockets of a project. Subcontractor users only see their own company's dockets.
// @Tags Dockets
// @Produce json
// @Param projectId query string true "Project ID" format(uuid)
// @Param status query string false "Filter by status" Enums(draft, pending_approval, approved, rejected)
// @Param subcontractorCompanyId query string false "Filter by subcontractor company" format(uuid)
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page (max 200)" default(20)
// @Success 200 {object} domain.APIResponse{data=[]domain.DocketDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /dockets [get]
func (h *DocketHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := requiredProjectID(w, r)
	if !ok {
		return
	}

	filter := repository.DocketFilter{}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.DocketStatus(s)
		filter.Status = &status
	}
	if filter.SubcontractorCompanyID, ok = queryUUID(w, r, "subcontractorCompanyId"); !ok {
		return
	}

	page, err := h.docketService.List(r.Context(), membership(r), projectID, filter, pageRequest(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondPage(w, page)
}

// Create godoc
// @Summary Create docket
// @Description Subcontractor users file for their own company; head contractor users must name the company.
// @Tags Dockets
// @Accept json
// @Produce json
// @Param request body domain.CreateDocketRequest true "Docket"
// @Success 201 {object} domain.APIResponse{data=domain.DocketDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Security BearerAuth
// @Router /dockets [post]
func (h *DocketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDocketRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	d, err := h.docketService.Create(r.Context(), membership(r), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusCreated, d)
}

// GetByID godoc
// @Summary Get docket
// @Tags Dockets
// @Produce json
// @Param id path string true "Docket ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.DocketDTO}
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /dockets/{id} [get]
func (h *DocketHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.docketService.GetByID(r.Context(), membership(r), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, d)
}

// Update godoc
// @Summary Update draft docket
// @Tags Dockets
// @Accept json
// @Produce json
// @Param id path string true "Docket ID" format(uuid)
// @Param request body domain.UpdateDocketRequest true "Changes"
// @Success 200 {object} domain.APIResponse{data=domain.DocketDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /dockets/{id} [patch]
func (h *DocketHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateDocketRequest
	h.transition(w, r, &req, false, func(ctx context.Context, m *access.Membership, id uuid.UUID) (*domain.DocketDTO, error) {
		return h.docketService.Update(ctx, m, id, &req)
	})
}

// Delete godoc
// @Summary Delete draft docket
// @Tags Dockets
// @Param id path string true "Docket ID" format(uuid)
// @Success 204
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /dockets/{id} [delete]
func (h *DocketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.docketService.Delete(r.Context(), membership(r), id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondNoContent(w)
}

// Submit godoc
// @Summary Submit docket
// @Description Moves a draft to pending_approval and notifies every project member who may approve.
// @Tags Dockets
// @Produce json
// @Param id path string true "Docket ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.DocketDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /dockets/{id}/submit [post]
func (h *DocketHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.docketService.Submit(r.Context(), membership(r), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, d)
}

// Approve godoc
// @Summary Approve docket
// @Description Approved hours default to the submitted hours; adjusted hours need an adjustment reason.
// @Tags Dockets
// @Accept json
// @Produce json
// @Param id path string true "Docket ID" format(uuid)
// @Param request body domain.ApproveDocketRequest false "Approval"
// @Success 200 {object} domain.APIResponse{data=domain.DocketDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /dockets/{id}/approve [post]
func (h *DocketHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req domain.ApproveDocketRequest
	h.transition(w, r, &req, true, func(ctx context.Context, m *access.Membership, id uuid.UUID) (*domain.DocketDTO, error) {
		return h.docketService.Approve(ctx, m, id, &req)
	})
}

// Reject godoc
// @Summary Reject docket
// @Tags Dockets
// @Accept json
// @Produce json
// @Param id path string true "Docket ID" format(uuid)
// @Param request body domain.RejectDocketRequest true "Reason"
// @Success 200 {object} domain.APIResponse{data=domain.DocketDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /dockets/{id}/reject [post]
func (h *DocketHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req domain.RejectDocketRequest
	h.transition(w, r, &req, false, func(ctx context.Context, m *access.Membership, id uuid.UUID) (*domain.DocketDTO, error) {
		return h.docketService.Reject(ctx, m, id, &req)
	})
}

func (h *DocketHandler) transition(w http.ResponseWriter, r *http.Request, req interface{}, optionalBody bool,
	action func(ctx context.Context, m *access.Membership, id uuid.UUID) (*domain.DocketDTO, error)) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	if optionalBody {
		ok = decodeOptional(w, r, req)
	} else {
		ok = decodeAndValidate(w, r, req)
	}
	if !ok {
		return
	}
	d, err := action(r.Context(), membership(r), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, d)
}
