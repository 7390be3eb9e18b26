package repository

import (
	"context"
	"encoding/json"

	"github.com/listenline/ListenLineBack/internal/models"
)

type NotificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, recipient_id, sender_id, type, title, message, is_read, data, created_at`

func scanNotification(row interface{ Scan(dest ...any) error }) (*models.Notification, error) {
	var notification models.Notification
	err := row.Scan(
		&notification.ID,
		&notification.RecipientID,
		&notification.SenderID,
		&notification.Type,
		&notification.Title,
		&notification.Message,
		&notification.IsRead,
		&notification.Data,
		&notification.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

type CreateNotificationInput struct {
	RecipientID int64
	SenderID    *int64
	Type        string
	Title       string
	Message     string
	Data        json.RawMessage
}

func (r *NotificationRepository) Create(
	ctx context.Context,
	input CreateNotificationInput,
) (*models.Notification, error) {
	query := `
		INSERT INTO notifications (recipient_id, sender_id, type, title, message, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + notificationColumns + `
	`
	return scanNotification(r.db.QueryRow(
		ctx,
		query,
		input.RecipientID,
		input.SenderID,
		input.Type,
		input.Title,
		input.Message,
		input.Data,
	))
}

// CountUnread is always a fresh query; unread counts are never cached or
// maintained incrementally.
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT is_read`
	var count int
	if err := r.db.QueryRow(ctx, query, recipientID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *NotificationRepository) ListByRecipient(
	ctx context.Context,
	recipientID int64,
	limit int,
	offset int,
) ([]models.Notification, int, error) {
	countQuery := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1`
	var total int
	if err := r.db.QueryRow(ctx, countQuery, recipientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		notifications = append(notifications, *notification)
	}
	return notifications, total, rows.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, recipientID int64, notificationID int64) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE
		WHERE id = $1 AND recipient_id = $2
	`
	_, err := r.db.Exec(ctx, query, notificationID, recipientID)
	return err
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID int64) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE
		WHERE recipient_id = $1 AND NOT is_read
	`
	_, err := r.db.Exec(ctx, query, recipientID)
	return err
}
