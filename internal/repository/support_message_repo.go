package repository

import (
	"context"

	"github.com/listenline/ListenLineBack/internal/models"
)

type SupportMessageRepository struct {
	db DBTX
}

func NewSupportMessageRepository(db DBTX) *SupportMessageRepository {
	return &SupportMessageRepository{db: db}
}

func (r *SupportMessageRepository) CreateSupportMessage(
	ctx context.Context,
	userID int64,
	senderID int64,
	receiverID int64,
	content string,
) (*models.SupportMessage, error) {
	query := `
		INSERT INTO support_messages (user_id, sender_id, receiver_id, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, sender_id, receiver_id, message, created_at
	`
	var message models.SupportMessage
	err := r.db.QueryRow(ctx, query, userID, senderID, receiverID, content).Scan(
		&message.ID,
		&message.UserID,
		&message.SenderID,
		&message.ReceiverID,
		&message.Message,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *SupportMessageRepository) ListByUser(
	ctx context.Context,
	userID int64,
	limit int,
	offset int,
) ([]models.SupportMessage, error) {
	query := `
		SELECT id, user_id, sender_id, receiver_id, message, created_at
		FROM support_messages
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.SupportMessage, 0)
	for rows.Next() {
		var message models.SupportMessage
		if err := rows.Scan(
			&message.ID,
			&message.UserID,
			&message.SenderID,
			&message.ReceiverID,
			&message.Message,
			&message.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}
