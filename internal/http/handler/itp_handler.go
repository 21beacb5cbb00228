package handler

import (
	"net/http"

	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/service"
	"go.uber.org/zap"
)

type ITPHandler struct {
	itpService *service.ITPService
	logger     *zap.Logger
}

func NewITPHandler(itpService *service.ITPService, logger *zap.Logger) *ITPHandler {
	return &ITPHandler{itpService: itpService, logger: logger}
}

// CreateTemplate godoc
// @Summary Create ITP template
// @Description Creates an inspection and test plan template with ordered checklist items.
// @Tags ITP
// @Accept json
// @Produce json
// @Param request body domain.CreateITPTemplateRequest true "Template"
// @Success 201 {object} domain.APIResponse{data=domain.ITPTemplateDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Security BearerAuth
// @Router /itp/templates [post]
func (h *ITPHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateITPTemplateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	tpl, err := h.itpService.CreateTemplate(r.Context(), membership(r), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusCreated, tpl)
}

// CreateInstance godoc
// @Summary Bind ITP to lot
// @Description Instantiates a template on a lot and opens a hold point for every hold point item.
// @Tags ITP
// @Accept json
// @Produce json
// @Param request body domain.CreateITPInstanceRequest true "Instance"
// @Success 201 {object} domain.APIResponse{data=domain.ITPInstanceDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 409 {object} domain.APIResponse
// @Security BearerAuth
// @Router /itp/instances [post]
func (h *ITPHandler) CreateInstance(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateITPInstanceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	inst, err := h.itpService.CreateInstance(r.Context(), membership(r), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusCreated, inst)
}

// GetInstance godoc
// @Summary Get ITP instance
// @Description Returns the instance with every checklist item and its completion state.
// @Tags ITP
// @Produce json
// @Param id path string true "Instance ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.ITPInstanceDTO}
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /itp/instances/{id} [get]
func (h *ITPHandler) GetInstance(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	inst, err := h.itpService.GetInstance(r.Context(), membership(r), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, inst)
}

// Complete godoc
// @Summary Complete checklist item
// @Description Records completion (or resets to pending) of one checklist item. Witness and hold point items, and items completed under an assignment that requires it, need verification.
// @Tags ITP
// @Accept json
// @Produce json
// @Param request body domain.ITPCompletionRequest true "Completion"
// @Success 200 {object} domain.APIResponse{data=domain.ITPCompletionDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /itp/completions [post]
func (h *ITPHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req domain.ITPCompletionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	c, err := h.itpService.Complete(r.Context(), membership(r), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, c)
}

// Verify godoc
// @Summary Verify completion
// @Description The completer may not verify their own item.
// @Tags ITP
// @Produce json
// @Param id path string true "Completion ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.ITPCompletionDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /itp/completions/{id}/verify [post]
func (h *ITPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.itpService.Verify(r.Context(), membership(r), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, c)
}

// Unverify godoc
// @Summary Withdraw verification
// @Tags ITP
// @Produce json
// @Param id path string true "Completion ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.ITPCompletionDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /itp/completions/{id}/unverify [post]
func (h *ITPHandler) Unverify(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.itpService.Unverify(r.Context(), membership(r), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, c)
}
