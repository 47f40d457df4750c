package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aiqalab/redteam-console/services"
	"github.com/aiqalab/redteam-console/utils"
)

// NotificationHandler serves the recent-notification backlog
type NotificationHandler struct {
	notifier *services.Notifier
}

// NewNotificationHandler creates a new notification handler instance
func NewNotificationHandler(notifier *services.Notifier) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

// ListNotifications handles GET /api/notifications requests
func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	return utils.SuccessResponse(c, "Notifications retrieved successfully", h.notifier.Recent())
}
