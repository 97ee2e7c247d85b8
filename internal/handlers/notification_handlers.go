package handlers

import (
	"net/http"

	"venue_pos_backend/internal/middleware"
	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications services.NotificationService
}

func NewNotificationHandler(notifications services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// GetNotifications lists notifications addressed to the caller's role or to the caller.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	list, err := h.notifications.List(c.Request.Context(), middleware.CurrentActor(c), unreadOnly)
	if err != nil {
		respondServiceError(c, err, "fetch notifications")
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c)); err != nil {
		respondServiceError(c, err, "mark notification read")
		return
	}
	c.Status(http.StatusNoContent)
}
