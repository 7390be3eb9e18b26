package models

import "time"

const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"
)

type ChatMessage struct {
	ID          int64     `json:"id"`
	SessionID   int64     `json:"session_id"`
	SenderID    int64     `json:"sender_id"`
	ReceiverID  int64     `json:"receiver_id"`
	Message     string    `json:"message"`
	MessageType string    `json:"message_type"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
