package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/service"
)

// NotificationsHandler exposes the caller's inbox.
type NotificationsHandler struct {
	notifier *service.NotificationDispatcher
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifier *service.NotificationDispatcher) *NotificationsHandler {
	return &NotificationsHandler{notifier: notifier}
}

// List GET /notifications?unread=true&limit=50.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	items, err := h.notifier.ListForUser(c.UserContext(), auth.ActorFromContext(c), c.QueryBool("unread", false), parseInt(c.Query("limit"), 50))
	if err != nil {
		return err
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return c.JSON(fiber.Map{"data": items})
}

// MarkRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	n, err := h.notifier.MarkRead(c.UserContext(), auth.ActorFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": n})
}
