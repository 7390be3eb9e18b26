package models

import "time"

const (
	TicketStatusOpen   = "open"
	TicketStatusClosed = "closed"
)

// SupportMessage is one line of a user's support chat, kept apart from
// session chat because support rooms have no owning session.
type SupportMessage struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// SupportTicket is the audit record written when support staff close a
// support chat.
type SupportTicket struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	AgentID     *int64    `json:"agent_id,omitempty"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
