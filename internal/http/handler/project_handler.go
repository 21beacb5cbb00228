package handler

import (
	"net/http"

	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/service"
	"go.uber.org/zap"
)

type ProjectHandler struct {
	projectService *service.ProjectService
	logger         *zap.Logger
}

func NewProjectHandler(projectService *service.ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projectService: projectService, logger: logger}
}

// List godoc
// @Summary List projects
// @Description Projects the caller belongs to, plus every project of their company for company admins
// @Tags Projects
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page (max 200)" default(20)
// @Success 200 {object} domain.APIResponse{data=[]domain.ProjectDTO}
// @Failure 401 {object} domain.APIResponse
// @Security BearerAuth
// @Router /projects [get]
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.projectService.List(r.Context(), membership(r), pageRequest(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondPage(w, page)
}

// Create godoc
// @Summary Create project
// @Description Creates a project in the caller's company. Requires owner or admin company role.
// @Tags Projects
// @Accept json
// @Produce json
// @Param request body domain.CreateProjectRequest true "Project data"
// @Success 201 {object} domain.APIResponse{data=domain.ProjectDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Security BearerAuth
// @Router /projects [post]
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	project, err := h.projectService.Create(r.Context(), membership(r), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusCreated, project)
}

// GetByID godoc
// @Summary Get project
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.ProjectDTO}
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /projects/{id} [get]
func (h *ProjectHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	project, err := h.projectService.GetByID(r.Context(), membership(r), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, project)
}

// AddUser godoc
// @Summary Add project member
// @Description Grants a user a project role. The user must belong to the project's company unless the role is a subcontractor role.
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID" format(uuid)
// @Param request body domain.AddProjectUserRequest true "Member"
// @Success 201 {object} domain.APIResponse{data=domain.ProjectUserDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 409 {object} domain.APIResponse
// @Security BearerAuth
// @Router /projects/{id}/users [post]
func (h *ProjectHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req domain.AddProjectUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	member, err := h.projectService.AddUser(r.Context(), membership(r), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusCreated, member)
}

// AddSubcontractor godoc
// @Summary Add subcontractor company
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID" format(uuid)
// @Param request body domain.CreateSubcontractorRequest true "Subcontractor company"
// @Success 201 {object} domain.APIResponse{data=domain.SubcontractorCompanyDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Security BearerAuth
// @Router /projects/{id}/subcontractors [post]
func (h *ProjectHandler) AddSubcontractor(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req domain.CreateSubcontractorRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	sub, err := h.projectService.AddSubcontractor(r.Context(), membership(r), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusCreated, sub)
}

// AddSubcontractorUser godoc
// @Summary Link a user to a subcontractor company
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID" format(uuid)
// @Param subId path string true "Subcontractor company ID" format(uuid)
// @Param request body domain.AddSubcontractorUserRequest true "Subcontractor user"
// @Success 201 {object} domain.APIResponse{data=domain.SubcontractorUserDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /projects/{id}/subcontractors/{subId}/users [post]
func (h *ProjectHandler) AddSubcontractorUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	subID, ok := urlUUID(w, r, "subId")
	if !ok {
		return
	}
	var req domain.AddSubcontractorUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	link, err := h.projectService.AddSubcontractorUser(r.Context(), membership(r), id, subID, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusCreated, link)
}
