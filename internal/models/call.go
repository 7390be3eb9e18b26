package models

import "time"

const (
	CallTypeAudio = "audio"
	CallTypeVideo = "video"
)

// Authoritative call status set. The transitions are
// initiated -> {ongoing, rejected} and ongoing -> {completed, failed, missed};
// nothing leaves a terminal state.
const (
	CallStatusInitiated = "initiated"
	CallStatusOngoing   = "ongoing"
	CallStatusCompleted = "completed"
	CallStatusRejected  = "rejected"
	CallStatusFailed    = "failed"
	CallStatusMissed    = "missed"
)

type CallLog struct {
	ID              int64      `json:"id"`
	SessionID       int64      `json:"session_id"`
	CallerID        int64      `json:"caller_id"`
	ReceiverID      int64      `json:"receiver_id"`
	CallType        string     `json:"call_type"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds int64      `json:"duration_seconds"`
	Status          string     `json:"status"`
}

func ValidCallType(t string) bool {
	return t == CallTypeAudio || t == CallTypeVideo
}

func TerminalCallStatus(s string) bool {
	switch s {
	case CallStatusCompleted, CallStatusRejected, CallStatusFailed, CallStatusMissed:
		return true
	}
	return false
}
