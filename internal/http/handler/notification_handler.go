package handler

import (
	"net/http"
	"strconv"

	"github.com/juggajay/site-proof-sub006/internal/service"
	"go.uber.org/zap"
)

// NotificationHandler serves the caller's own inbox
type NotificationHandler struct {
	notificationService *service.NotificationService
	logger              *zap.Logger
}

func NewNotificationHandler(notificationService *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, logger: logger}
}

// List godoc
// @Summary List notifications
// @Description Lists the current user's notifications, newest first.
// @Tags Notifications
// @Produce json
// @Param unreadOnly query bool false "Only unread notifications"
// @Param type query string false "Filter by notification type"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page (max 200)" default(20)
// @Success 200 {object} domain.APIResponse{data=[]domain.NotificationDTO}
// @Failure 401 {object} domain.APIResponse
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unreadOnly"))
	q := service.NotificationQuery{
		UnreadOnly: unreadOnly,
		Type:       r.URL.Query().Get("type"),
	}

	page, err := h.notificationService.List(r.Context(), membership(r), q, pageRequest(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondPage(w, page)
}

// UnreadCount godoc
// @Summary Count unread notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} domain.APIResponse{data=domain.UnreadCountDTO}
// @Failure 401 {object} domain.APIResponse
// @Security BearerAuth
// @Router /notifications/count [get]
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notificationService.UnreadCount(r.Context(), membership(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, count)
}

// MarkRead godoc
// @Summary Mark notification as read
// @Tags Notifications
// @Param id path string true "Notification ID" format(uuid)
// @Success 204
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.notificationService.MarkRead(r.Context(), membership(r), id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondNoContent(w)
}

// MarkAllRead godoc
// @Summary Mark all notifications as read
// @Tags Notifications
// @Success 204
// @Failure 401 {object} domain.APIResponse
// @Security BearerAuth
// @Router /notifications/read-all [put]
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notificationService.MarkAllRead(r.Context(), membership(r)); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondNoContent(w)
}
