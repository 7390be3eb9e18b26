package models

import "time"

const (
	SessionTypeChat  = "chat"
	SessionTypeAudio = "audio"
	SessionTypeVideo = "video"
)

const (
	SessionStatusPending   = "pending"
	SessionStatusOngoing   = "ongoing"
	SessionStatusCompleted = "completed"
	SessionStatusCancelled = "cancelled"
)

const (
	EndedByUser     = "user"
	EndedByListener = "listener"
)

// Session is one billable engagement between a user and a listener of a
// given modality. At most one session per (user, listener, type) tuple may
// be pending or ongoing at any instant; the partial unique index in the
// schema backs that invariant.
type Session struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	ListenerID      int64      `json:"listener_id"`
	Type            string     `json:"type"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          string     `json:"status"`
	PaymentStatus   string     `json:"payment_status"`
	Amount          float64    `json:"amount"`
	EndedByType     *string    `json:"ended_by_type,omitempty"`
	EndedByID       *int64     `json:"ended_by_id,omitempty"`
	EndedReason     *string    `json:"ended_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (s *Session) IsActive() bool {
	return s.Status == SessionStatusPending || s.Status == SessionStatusOngoing
}

func ValidSessionType(t string) bool {
	return t == SessionTypeChat || t == SessionTypeAudio || t == SessionTypeVideo
}
