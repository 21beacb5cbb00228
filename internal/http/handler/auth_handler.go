package handler

import (
	"net/http"

	"github.com/juggajay/site-proof-sub006/internal/service"
	"go.uber.org/zap"
)

type AuthHandler struct {
	identityService *service.IdentityService
	logger          *zap.Logger
}

func NewAuthHandler(identityService *service.IdentityService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{identityService: identityService, logger: logger}
}

// Me godoc
// @Summary Get current user
// @Description Returns the authenticated user with their company role, project roles and subcontractor affiliations
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.APIResponse{data=domain.MeDTO}
// @Failure 401 {object} domain.APIResponse
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	me, err := h.identityService.Me(r.Context(), membership(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, me)
}
