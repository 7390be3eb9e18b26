package services

import (
	"context"

	"github.com/listenline/ListenLineBack/internal/models"
	"github.com/listenline/ListenLineBack/internal/repository"
	"github.com/rs/zerolog/log"
)

type notificationStore interface {
	Create(ctx context.Context, input repository.CreateNotificationInput) (*models.Notification, error)
	CountUnread(ctx context.Context, recipientID int64) (int, error)
	ListByRecipient(ctx context.Context, recipientID int64, limit, offset int) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, recipientID, notificationID int64) error
	MarkAllRead(ctx context.Context, recipientID int64) error
}

type adminLister interface {
	ListAdminIDs(ctx context.Context) ([]int64, error)
}

// Broadcaster delivers an event to every live connection of one user.
type Broadcaster interface {
	SendToUser(userID int64, event string, data any)
}

// PresenceChecker answers whether a user currently holds any live connection.
type PresenceChecker interface {
	IsOnline(userID int64) bool
}

// NotificationService is durable-first: every notification is persisted
// before any delivery attempt, so a disconnected recipient finds it later.
// Unread counts are recomputed from the store at every observation, never
// maintained in memory.
type NotificationService struct {
	notifications notificationStore
	admins        adminLister
	broadcaster   Broadcaster
	presence      PresenceChecker
}

func NewNotificationService(
	notifications notificationStore,
	admins adminLister,
	broadcaster Broadcaster,
	presence PresenceChecker,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		admins:        admins,
		broadcaster:   broadcaster,
		presence:      presence,
	}
}

func (s *NotificationService) Notify(
	ctx context.Context,
	input repository.CreateNotificationInput,
) (*models.Notification, error) {
	notification, err := s.notifications.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	if s.presence.IsOnline(input.RecipientID) {
		s.broadcaster.SendToUser(input.RecipientID, "notification:new", notification)

		count, err := s.notifications.CountUnread(ctx, input.RecipientID)
		if err != nil {
			log.Error().Err(err).Int64("recipient", input.RecipientID).Msg("unread count query failed")
		} else {
			s.broadcaster.SendToUser(input.RecipientID, "notification:unreadCount", map[string]int{"count": count})
		}
	}

	return notification, nil
}

// BroadcastToAdmins writes one independently read-tracked row per admin and
// delivers each separately.
func (s *NotificationService) BroadcastToAdmins(
	ctx context.Context,
	input repository.CreateNotificationInput,
) ([]models.Notification, error) {
	adminIDs, err := s.admins.ListAdminIDs(ctx)
	if err != nil {
		return nil, err
	}

	notifications := make([]models.Notification, 0, len(adminIDs))
	for _, adminID := range adminIDs {
		perAdmin := input
		perAdmin.RecipientID = adminID
		notification, err := s.Notify(ctx, perAdmin)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, *notification)
	}
	return notifications, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	return s.notifications.CountUnread(ctx, recipientID)
}

func (s *NotificationService) List(
	ctx context.Context,
	recipientID int64,
	page int,
	limit int,
) ([]models.Notification, int, error) {
	if page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}
	return s.notifications.ListByRecipient(ctx, recipientID, limit, (page-1)*limit)
}

// MarkRead flips one notification and pushes the recomputed unread count to
// the recipient's live connections.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, notificationID int64) error {
	if err := s.notifications.MarkRead(ctx, recipientID, notificationID); err != nil {
		return err
	}
	s.pushUnreadCount(ctx, recipientID)
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID int64) error {
	if err := s.notifications.MarkAllRead(ctx, recipientID); err != nil {
		return err
	}
	s.pushUnreadCount(ctx, recipientID)
	return nil
}

func (s *NotificationService) pushUnreadCount(ctx context.Context, recipientID int64) {
	if !s.presence.IsOnline(recipientID) {
		return
	}
	count, err := s.notifications.CountUnread(ctx, recipientID)
	if err != nil {
		log.Error().Err(err).Int64("recipient", recipientID).Msg("unread count query failed")
		return
	}
	s.broadcaster.SendToUser(recipientID, "notification:unreadCount", map[string]int{"count": count})
}
