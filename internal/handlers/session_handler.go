package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/listenline/ListenLineBack/internal/models"
	"github.com/listenline/ListenLineBack/internal/repository"
	"github.com/listenline/ListenLineBack/internal/services"
)

type SessionHandler struct {
	sessions     *services.SessionService
	chats        *services.ChatService
	sessionRepo  *repository.SessionRepository
	listenerRepo *repository.ListenerRepository
}

func NewSessionHandler(
	sessions *services.SessionService,
	chats *services.ChatService,
	sessionRepo *repository.SessionRepository,
	listenerRepo *repository.ListenerRepository,
) *SessionHandler {
	return &SessionHandler{
		sessions:     sessions,
		chats:        chats,
		sessionRepo:  sessionRepo,
		listenerRepo: listenerRepo,
	}
}

// ListSessions returns the caller's session history. Listeners see the
// sessions booked against their profile, everyone else sees their own.
func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset := (page - 1) * limit

	role, _ := c.Locals("role").(string)

	var sessions []models.Session
	if role == models.RoleListener {
		listener, err := h.listenerRepo.GetByUserID(c.Context(), actorID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listener profile not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load sessions"})
		}
		sessions, err = h.sessionRepo.ListForListener(c.Context(), listener.ID, limit, offset)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load sessions"})
		}
	} else {
		sessions, err = h.sessionRepo.ListForUser(c.Context(), actorID, limit, offset)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load sessions"})
		}
	}

	return c.JSON(fiber.Map{
		"sessions": sessions,
		"page":     page,
		"limit":    limit,
	})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := c.ParamsInt("id")
	if err != nil || sessionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	participants, err := h.sessions.EnsureParticipant(c.Context(), int64(sessionID), actorID)
	if err != nil {
		return serviceError(c, err, "Failed to load session")
	}

	return c.JSON(fiber.Map{"session": participants.Session})
}

// GetMessages pages through a session's chat history and marks the page as
// read for the caller.
func (h *SessionHandler) GetMessages(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := c.ParamsInt("id")
	if err != nil || sessionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	messages, total, err := h.chats.ListMessages(c.Context(), actorID, int64(sessionID), page, limit)
	if err != nil {
		return serviceError(c, err, "Failed to load messages")
	}

	return c.JSON(fiber.Map{
		"messages":   messages,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func serviceError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not a participant of this session"})
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrListenerNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
	}
}
