package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/listenline/ListenLineBack/internal/services"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	notifications, total, err := h.notifications.List(c.Context(), actorID, page, limit)
	if err != nil {
		return serviceError(c, err, "Failed to load notifications")
	}

	unread, err := h.notifications.UnreadCount(c.Context(), actorID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load notifications"})
	}

	return c.JSON(fiber.Map{
		"notifications": notifications,
		"unread_count":  unread,
		"pagination":    buildPaginationMeta(page, limit, total),
	})
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	count, err := h.notifications.UnreadCount(c.Context(), actorID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to count notifications"})
	}

	return c.JSON(fiber.Map{"count": count})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	notificationID, err := c.ParamsInt("id")
	if err != nil || notificationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid notification id"})
	}

	if err := h.notifications.MarkRead(c.Context(), actorID, int64(notificationID)); err != nil {
		return serviceError(c, err, "Failed to update notification")
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	if err := h.notifications.MarkAllRead(c.Context(), actorID); err != nil {
		return serviceError(c, err, "Failed to update notifications")
	}

	return c.JSON(fiber.Map{"success": true})
}
