package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusdesk/request-portal-api/internal/service"
	appErrors "github.com/campusdesk/request-portal-api/pkg/errors"
	"github.com/campusdesk/request-portal-api/pkg/response"
)

// NotificationHandler exposes the caller's unread notification queue.
type NotificationHandler struct {
	service *service.NotificationService
}

// NewNotificationHandler creates a new handler.
func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// List godoc
// @Summary List unread notifications
// @Description List the caller's pending notifications oldest first
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	notifications, err := h.service.ListUnread(c.Request.Context(), actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	count := len(notifications)
	response.JSON(c, http.StatusOK, notifications, nil, map[string]interface{}{"unread_count": count})
}

// UnreadCount godoc
// @Summary Count unread notifications
// @Description Return the caller's unread notification count
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications/count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"unread_count": count}, nil)
}

// MarkAllRead godoc
// @Summary Acknowledge all notifications
// @Description Remove every pending notification for the caller
// @Tags Notifications
// @Produce json
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications/read [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.MarkAllRead(c.Request.Context(), actor.ID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// MarkOne godoc
// @Summary Acknowledge one notification
// @Description Remove exactly the identified notification, leaving the rest pending
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) MarkOne(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.MarkOne(c.Request.Context(), actor.ID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
