package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/listenline/ListenLineBack/internal/services"
)

// Envelope is one inbound client frame. ID, when present, asks for a reply
// frame carrying the same value in replyTo.
type Envelope struct {
	ID    string          `json:"id,omitempty"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is one server frame.
type Outbound struct {
	Event   string `json:"event"`
	ReplyTo string `json:"replyTo,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Inbound event surface.
const (
	EventSessionGetOrCreate = "session:getOrCreate"
	EventSessionEnd         = "session:end"

	EventCallStart  = "call:start"
	EventCallAccept = "call:accept"
	EventCallReject = "call:reject"
	EventCallEnd    = "call:end"
	EventCallOffer  = "call:offer"
	EventCallAnswer = "call:answer"
	EventCallICE    = "call:ice"

	EventChatJoin    = "chat:join"
	EventChatMessage = "chat:message"
	EventChatTyping  = "chat:typing"
	EventChatLeave   = "chat:leave"

	EventSupportUserJoin  = "userJoin"
	EventSupportAgentJoin = "agentJoin"
	EventSupportSend      = "sendMessage"
	EventSupportTyping    = "typing"
	EventSupportEnd       = "endChat"
)

// Server-emitted events.
const (
	EventSessionReady  = "session:ready"
	EventSessionEnded  = "session:ended"
	EventCallIncoming  = "call:incoming"
	EventCallStarted   = "call:started"
	EventCallAccepted  = "call:accepted"
	EventCallRejected  = "call:rejected"
	EventCallEnded     = "call:ended"
	EventChatJoined    = "chat:joined"
	EventChatLeft      = "chat:left"
	EventSystemMessage = "systemMessage"
	EventReceiveMsg    = "receiveMessage"
	EventChatEnded     = "chatEnded"
	EventError         = "error"
)

// Wire error codes. UNAUTHORIZED only ever appears at handshake time, where
// the connection is refused outright.
const (
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInternal          = "INTERNAL_ERROR"
)

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// wireError maps a service error onto a client-visible code. Unknown errors
// collapse to INTERNAL_ERROR so nothing internal leaks.
func wireError(err error) ErrorPayload {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, services.ErrForbidden):
		return ErrorPayload{Code: CodeForbidden, Message: "not a participant"}
	case errors.Is(err, services.ErrInvalidTransition):
		return ErrorPayload{Code: CodeInvalidTransition, Message: err.Error()}
	case errors.Is(err, services.ErrInvalidInput):
		return ErrorPayload{Code: CodeValidation, Message: err.Error()}
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrListenerNotFound),
		errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrCallNotFound),
		errors.Is(err, services.ErrRoomNotFound):
		return ErrorPayload{Code: CodeNotFound, Message: err.Error()}
	case errors.As(err, &validationErrs):
		return ErrorPayload{Code: CodeValidation, Message: validationErrs.Error()}
	default:
		return ErrorPayload{Code: CodeInternal, Message: "internal error"}
	}
}

// SessionRoomKey names the broadcast room scoped to one session's two
// participants.
func SessionRoomKey(sessionID int64) string {
	return fmt.Sprintf("session:%d", sessionID)
}
