package repository

import (
	"context"

	"github.com/listenline/ListenLineBack/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, session_id, sender_id, receiver_id, message, message_type, is_read, created_at`

func scanMessage(row interface{ Scan(dest ...any) error }) (*models.ChatMessage, error) {
	var message models.ChatMessage
	err := row.Scan(
		&message.ID,
		&message.SessionID,
		&message.SenderID,
		&message.ReceiverID,
		&message.Message,
		&message.MessageType,
		&message.IsRead,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *MessageRepository) Create(
	ctx context.Context,
	sessionID int64,
	senderID int64,
	receiverID int64,
	content string,
	messageType string,
) (*models.ChatMessage, error) {
	query := `
		INSERT INTO chat_messages (session_id, sender_id, receiver_id, message, message_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + messageColumns + `
	`
	return scanMessage(r.db.QueryRow(ctx, query, sessionID, senderID, receiverID, content, messageType))
}

func (r *MessageRepository) ListBySession(
	ctx context.Context,
	sessionID int64,
	limit int,
	offset int,
) ([]models.ChatMessage, int, error) {
	countQuery := `SELECT COUNT(*) FROM chat_messages WHERE session_id = $1`
	var total int
	if err := r.db.QueryRow(ctx, countQuery, sessionID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + messageColumns + `
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, sessionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		messages = append(messages, *message)
	}
	return messages, total, rows.Err()
}

// MarkSessionRead flags every message addressed to readerID in the session
// as read. Read status is the only mutable field on a chat message.
func (r *MessageRepository) MarkSessionRead(ctx context.Context, sessionID int64, readerID int64) error {
	query := `
		UPDATE chat_messages
		SET is_read = TRUE
		WHERE session_id = $1 AND receiver_id = $2 AND NOT is_read
	`
	_, err := r.db.Exec(ctx, query, sessionID, readerID)
	return err
}
