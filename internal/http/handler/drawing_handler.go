package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/repository"
	"github.com/juggajay/site-proof-sub006/internal/service"
	"go.uber.org/zap"
)

type DrawingHandler struct {
	drawingService *service.DrawingService
	maxUploadMB    int64
	logger         *zap.Logger
}

func NewDrawingHandler(drawingService *service.DrawingService, maxUploadMB int64, logger *zap.Logger) *DrawingHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return &DrawingHandler{drawingService: drawingService, maxUploadMB: maxUploadMB, logger: logger}
}

// List godoc
// @Summary List drawings
// @Tags Drawings
// @Produce json
// @Param projectId query string true "Project ID" format(uuid)
// @Param currentOnly query bool false "Only the current revision of each drawing number"
// @Param drawingNumber query string false "Filter by drawing number"
// @Param discipline query string false "Filter by discipline"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page (max 200)" default(20)
// @Success 200 {object} domain.APIResponse{data=[]domain.DrawingDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /drawings [get]
func (h *DrawingHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := requiredProjectID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	currentOnly, _ := strconv.ParseBool(q.Get("currentOnly"))
	filter := repository.DrawingFilter{
		CurrentOnly:   currentOnly,
		DrawingNumber: q.Get("drawingNumber"),
		Discipline:    q.Get("discipline"),
	}

	page, err := h.drawingService.List(r.Context(), membership(r), projectID, filter, pageRequest(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondPage(w, page)
}

// Create godoc
// @Summary Register drawing
// @Description A drawing number has at most one current revision per project.
// @Tags Drawings
// @Accept json
// @Produce json
// @Param request body domain.CreateDrawingRequest true "Drawing"
// @Success 201 {object} domain.APIResponse{data=domain.DrawingDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 409 {object} domain.APIResponse
// @Security BearerAuth
// @Router /drawings [post]
func (h *DrawingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDrawingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	d, err := h.drawingService.Create(r.Context(), membership(r), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusCreated, d)
}

// GetByID godoc
// @Summary Get drawing
// @Tags Drawings
// @Produce json
// @Param id path string true "Drawing ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.DrawingDTO}
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /drawings/{id} [get]
func (h *DrawingHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.drawingService.GetByID(r.Context(), membership(r), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, d)
}

// Delete godoc
// @Summary Delete drawing
// @Description Only the current revision can be deleted; its predecessor becomes current again.
// @Tags Drawings
// @Param id path string true "Drawing ID" format(uuid)
// @Success 204
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Failure 409 {object} domain.APIResponse
// @Security BearerAuth
// @Router /drawings/{id} [delete]
func (h *DrawingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.drawingService.Delete(r.Context(), membership(r), id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondNoContent(w)
}

// Supersede godoc
// @Summary Supersede drawing
// @Description Creates the next revision and links the current one to it. Exactly one of several concurrent supersedes succeeds.
// @Tags Drawings
// @Accept json
// @Produce json
// @Param id path string true "Drawing ID" format(uuid)
// @Param request body domain.SupersedeDrawingRequest true "New revision"
// @Success 201 {object} domain.APIResponse{data=domain.DrawingDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Failure 409 {object} domain.APIResponse
// @Security BearerAuth
// @Router /drawings/{id}/supersede [post]
func (h *DrawingHandler) Supersede(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req domain.SupersedeDrawingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	d, err := h.drawingService.Supersede(r.Context(), membership(r), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusCreated, d)
}

// UploadFile godoc
// @Summary Upload drawing file
// @Description Attaches or replaces the file of one revision.
// @Tags Drawings
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Drawing ID" format(uuid)
// @Param file formData file true "Drawing file"
// @Success 200 {object} domain.APIResponse{data=domain.DrawingDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Failure 413 {object} domain.APIResponse
// @Security BearerAuth
// @Router /drawings/{id}/file [post]
func (h *DrawingHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	limit := h.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, domain.CodeValidation,
				fmt.Sprintf("file too large: maximum size is %dMB", h.maxUploadMB))
			return
		}
		respondWithError(w, http.StatusBadRequest, domain.CodeValidation, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, domain.APIResponse{
			Success: false,
			Error: &domain.APIError{
				Code:    domain.CodeValidation,
				Message: "file field is required",
				Details: map[string]interface{}{"field": "file"},
			},
		})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	d, err := h.drawingService.UploadFile(r.Context(), membership(r), id, header.Filename, contentType, file)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, d)
}

// DownloadFile godoc
// @Summary Download drawing file
// @Tags Drawings
// @Produce application/octet-stream
// @Param id path string true "Drawing ID" format(uuid)
// @Success 200
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /drawings/{id}/file [get]
func (h *DrawingHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	body, meta, err := h.drawingService.DownloadFile(r.Context(), membership(r), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": meta.FileName}))
	if meta.FileSize > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(meta.FileSize, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("drawing download interrupted", zap.String("drawing_id", id.String()), zap.Error(err))
	}
}
