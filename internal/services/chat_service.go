package services

import (
	"context"
	"strings"

	"github.com/listenline/ListenLineBack/internal/models"
)

type messageStore interface {
	Create(ctx context.Context, sessionID, senderID, receiverID int64, content, messageType string) (*models.ChatMessage, error)
	ListBySession(ctx context.Context, sessionID int64, limit, offset int) ([]models.ChatMessage, int, error)
	MarkSessionRead(ctx context.Context, sessionID, readerID int64) error
}

// ChatService persists session-scoped chat. Broadcast is the caller's job;
// the service only decides who may write and who receives.
type ChatService struct {
	messages messageStore
	sessions sessionLifecycle
}

func NewChatService(messages messageStore, sessions sessionLifecycle) *ChatService {
	return &ChatService{messages: messages, sessions: sessions}
}

type ChatDelivery struct {
	Message    *models.ChatMessage
	Session    *models.Session
	ReceiverID int64
}

// SendMessage authorizes the sender as a session participant, derives the
// receiver as the other participant, and persists the message.
func (s *ChatService) SendMessage(
	ctx context.Context,
	actorID int64,
	sessionID int64,
	content string,
	messageType string,
) (*ChatDelivery, error) {
	if sessionID <= 0 {
		return nil, ErrInvalidInput
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrInvalidInput
	}
	if messageType == "" {
		messageType = models.MessageTypeText
	}

	participants, err := s.sessions.EnsureParticipant(ctx, sessionID, actorID)
	if err != nil {
		return nil, err
	}
	receiverID, err := participants.Other(actorID)
	if err != nil {
		return nil, err
	}

	message, err := s.messages.Create(ctx, sessionID, actorID, receiverID, trimmed, messageType)
	if err != nil {
		return nil, err
	}

	return &ChatDelivery{
		Message:    message,
		Session:    participants.Session,
		ReceiverID: receiverID,
	}, nil
}

// ListMessages returns a page of session history and marks everything
// addressed to the reader as read, mirroring how clients consume history.
func (s *ChatService) ListMessages(
	ctx context.Context,
	actorID int64,
	sessionID int64,
	page int,
	limit int,
) ([]models.ChatMessage, int, error) {
	if sessionID <= 0 || page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	if _, err := s.sessions.EnsureParticipant(ctx, sessionID, actorID); err != nil {
		return nil, 0, err
	}

	messages, total, err := s.messages.ListBySession(ctx, sessionID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}

	if err := s.messages.MarkSessionRead(ctx, sessionID, actorID); err != nil {
		return nil, 0, err
	}
	for i := range messages {
		if messages[i].ReceiverID == actorID {
			messages[i].IsRead = true
		}
	}

	return messages, total, nil
}
