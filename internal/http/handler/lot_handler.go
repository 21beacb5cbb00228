package handler

import (
	"net/http"

	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/repository"
	"github.com/juggajay/site-proof-sub006/internal/service"
	"go.uber.org/zap"
)

type LotHandler struct {
	lotService *service.LotService
	logger     *zap.Logger
}

func NewLotHandler(lotService *service.LotService, logger *zap.Logger) *LotHandler {
	return &LotHandler{lotService: lotService, logger: logger}
}

// List godoc
// @Summary List lots
// @Description Lots of a project. Subcontractor users only see lots assigned to their company.
// @Tags Lots
// @Produce json
// @Param projectId query string true "Project ID" format(uuid)
// @Param status query string false "Filter by status; ncr_raised matches lots with an open NCR" Enums(not_started, in_progress, awaiting_test, completed, ncr_raised)
// @Param lotType query string false "Filter by lot type" Enums(chainage, area, structure)
// @Param search query string false "Lot number or description contains"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page (max 200)" default(20)
// @Param sortBy query string false "Sort field" Enums(createdAt, updatedAt, lotNumber, status)
// @Param sortOrder query string false "Sort order" Enums(asc, desc) default(desc)
// @Success 200 {object} domain.APIResponse{data=[]domain.LotDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /lots [get]
func (h *LotHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := requiredProjectID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := repository.LotFilter{Search: q.Get("search")}
	if s := q.Get("status"); s != "" {
		status := domain.LotStatus(s)
		filter.Status = &status
	}
	if t := q.Get("lotType"); t != "" {
		lotType := domain.LotType(t)
		filter.LotType = &lotType
	}

	page, err := h.lotService.List(r.Context(), membership(r), projectID, filter, pageRequest(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondPage(w, page)
}

// Create godoc
// @Summary Create lot
// @Description Area lots need areaZone, structure lots need structureId. Lot numbers are unique per project.
// @Tags Lots
// @Accept json
// @Produce json
// @Param request body domain.CreateLotRequest true "Lot data"
// @Success 201 {object} domain.APIResponse{data=domain.LotDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 409 {object} domain.APIResponse
// @Security BearerAuth
// @Router /lots [post]
func (h *LotHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLotRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	lot, err := h.lotService.Create(r.Context(), membership(r), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusCreated, lot)
}

// GetByID godoc
// @Summary Get lot
// @Tags Lots
// @Produce json
// @Param id path string true "Lot ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.LotDTO}
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /lots/{id} [get]
func (h *LotHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	lot, err := h.lotService.GetByID(r.Context(), membership(r), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, lot)
}

// Update godoc
// @Summary Update lot
// @Description Moving to completed requires no open NCR, a satisfied ITP and released hold points.
// @Tags Lots
// @Accept json
// @Produce json
// @Param id path string true "Lot ID" format(uuid)
// @Param request body domain.UpdateLotRequest true "Changes"
// @Success 200 {object} domain.APIResponse{data=domain.LotDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /lots/{id} [patch]
func (h *LotHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateLotRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	lot, err := h.lotService.Update(r.Context(), membership(r), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, lot)
}

// Delete godoc
// @Summary Delete lot
// @Description Lots referenced by any NCR cannot be deleted.
// @Tags Lots
// @Param id path string true "Lot ID" format(uuid)
// @Success 204
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Failure 409 {object} domain.APIResponse
// @Security BearerAuth
// @Router /lots/{id} [delete]
func (h *LotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.lotService.Delete(r.Context(), membership(r), id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondNoContent(w)
}

// AssignSubcontractor godoc
// @Summary Assign subcontractor to lot
// @Description Creates or updates the assignment of a subcontractor company to the lot.
// @Tags Lots
// @Accept json
// @Produce json
// @Param id path string true "Lot ID" format(uuid)
// @Param request body domain.AssignLotSubcontractorRequest true "Assignment"
// @Success 200 {object} domain.APIResponse{data=domain.LotDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /lots/{id}/subcontractors [post]
func (h *LotHandler) AssignSubcontractor(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req domain.AssignLotSubcontractorRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	lot, err := h.lotService.AssignSubcontractor(r.Context(), membership(r), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, lot)
}

// RemoveSubcontractor godoc
// @Summary Remove subcontractor from lot
// @Tags Lots
// @Param id path string true "Lot ID" format(uuid)
// @Param subId path string true "Subcontractor company ID" format(uuid)
// @Success 204
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /lots/{id}/subcontractors/{subId} [delete]
func (h *LotHandler) RemoveSubcontractor(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	subID, ok := urlUUID(w, r, "subId")
	if !ok {
		return
	}
	if err := h.lotService.RemoveSubcontractor(r.Context(), membership(r), id, subID); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondNoContent(w)
}
