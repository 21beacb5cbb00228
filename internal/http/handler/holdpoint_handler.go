package handler

import (
	"net/http"

	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/repository"
	"github.com/juggajay/site-proof-sub006/internal/service"
	"go.uber.org/zap"
)

type HoldPointHandler struct {
	holdPointService *service.HoldPointService
	logger           *zap.Logger
}

func NewHoldPointHandler(holdPointService *service.HoldPointService, logger *zap.Logger) *HoldPointHandler {
	return &HoldPointHandler{holdPointService: holdPointService, logger: logger}
}

// List godoc
// @Summary List hold points
// @Description Hold points of a project with a computed isStale flag (unreleased for more than seven days).
// @Tags Hold Points
// @Produce json
// @Param projectId query string true "Project ID" format(uuid)
// @Param status query string false "Filter by status" Enums(pending, scheduled, requested, released)
// @Param lotId query string false "Filter by lot" format(uuid)
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page (max 200)" default(20)
// @Success 200 {object} domain.APIResponse{data=[]domain.HoldPointDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /holdpoints [get]
func (h *HoldPointHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := requiredProjectID(w, r)
	if !ok {
		return
	}

	filter := repository.HoldPointFilter{}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.HoldPointStatus(s)
		filter.Status = &status
	}
	if filter.LotID, ok = queryUUID(w, r, "lotId"); !ok {
		return
	}

	page, err := h.holdPointService.List(r.Context(), membership(r), projectID, filter, pageRequest(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondPage(w, page)
}

// Metrics godoc
// @Summary Hold point metrics
// @Description Counts by status, stale count and average hours from creation to release.
// @Tags Hold Points
// @Produce json
// @Param projectId query string true "Project ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.HoldPointMetricsDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /holdpoints/metrics [get]
func (h *HoldPointHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	projectID, ok := requiredProjectID(w, r)
	if !ok {
		return
	}
	metrics, err := h.holdPointService.Metrics(r.Context(), membership(r), projectID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, metrics)
}

// Schedule godoc
// @Summary Schedule inspection
// @Tags Hold Points
// @Accept json
// @Produce json
// @Param id path string true "Hold point ID" format(uuid)
// @Param request body domain.ScheduleHoldPointRequest true "Schedule"
// @Success 200 {object} domain.APIResponse{data=domain.HoldPointDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /holdpoints/{id}/schedule [post]
func (h *HoldPointHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req domain.ScheduleHoldPointRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	hp, err := h.holdPointService.Schedule(r.Context(), membership(r), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, hp)
}

// Request godoc
// @Summary Request release
// @Description Asks for inspection and notifies every project member who may release.
// @Tags Hold Points
// @Produce json
// @Param id path string true "Hold point ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.HoldPointDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /holdpoints/{id}/request [post]
func (h *HoldPointHandler) Request(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	hp, err := h.holdPointService.Request(r.Context(), membership(r), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, hp)
}

// Release godoc
// @Summary Release hold point
// @Description Release is final; a released hold point cannot change again.
// @Tags Hold Points
// @Accept json
// @Produce json
// @Param id path string true "Hold point ID" format(uuid)
// @Param request body domain.ReleaseHoldPointRequest false "Release notes"
// @Success 200 {object} domain.APIResponse{data=domain.HoldPointDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /holdpoints/{id}/release [post]
func (h *HoldPointHandler) Release(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req domain.ReleaseHoldPointRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	hp, err := h.holdPointService.Release(r.Context(), membership(r), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, hp)
}
