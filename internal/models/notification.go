package models

import (
	"encoding/json"
	"time"
)

type Notification struct {
	ID          int64           `json:"id"`
	RecipientID int64           `json:"recipient_id"`
	SenderID    *int64          `json:"sender_id,omitempty"`
	Type        string          `json:"type"`
	Title       string          `json:"title"`
	Message     string          `json:"message"`
	IsRead      bool            `json:"is_read"`
	Data        json.RawMessage `json:"data,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
