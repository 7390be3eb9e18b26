package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/listenline/ListenLineBack/internal/models"
	"github.com/listenline/ListenLineBack/internal/repository"
	"github.com/listenline/ListenLineBack/internal/services"
	"github.com/rs/zerolog/log"
)

type callStartPayload struct {
	SessionID      int64  `json:"sessionId"`
	ListenerID     int64  `json:"listenerId"`
	ListenerUserID int64  `json:"listenerUserId"`
	CallType       string `json:"callType" validate:"required,oneof=audio video"`
}

type callEventPayload struct {
	Call    *models.CallLog `json:"call"`
	Session *models.Session `json:"session,omitempty"`
}

func (r *Router) handleCallStart(ctx context.Context, client *Client, env Envelope) error {
	var p callStartPayload
	if err := r.decode(env, &p); err != nil {
		return err
	}

	result, err := r.calls.StartCall(ctx, services.StartCallInput{
		CallerID:       client.UserID,
		SessionID:      p.SessionID,
		ListenerID:     p.ListenerID,
		ListenerUserID: p.ListenerUserID,
		CallType:       p.CallType,
	})
	if err != nil {
		return err
	}

	r.hub.SendToUser(result.ReceiverID, EventCallIncoming, callEventPayload{
		Call:    result.Call,
		Session: result.Session,
	})
	r.reply(client, env, EventCallStarted, callEventPayload{
		Call:    result.Call,
		Session: result.Session,
	})

	// Durable notification so a recipient who reconnects still learns about
	// the attempt.
	data, _ := json.Marshal(map[string]int64{
		"callId":    result.Call.ID,
		"sessionId": result.Call.SessionID,
	})
	callerID := client.UserID
	if _, err := r.notifications.Notify(ctx, repository.CreateNotificationInput{
		RecipientID: result.ReceiverID,
		SenderID:    &callerID,
		Type:        "call:incoming",
		Title:       "Incoming call",
		Message:     fmt.Sprintf("Incoming %s call", result.Call.CallType),
		Data:        data,
	}); err != nil {
		log.Error().Err(err).Int64("recipient", result.ReceiverID).Msg("incoming call notification failed")
	}

	return nil
}

type callIDPayload struct {
	CallID int64 `json:"callId" validate:"required,gt=0"`
}

func (r *Router) handleCallAccept(ctx context.Context, client *Client, env Envelope) error {
	var p callIDPayload
	if err := r.decode(env, &p); err != nil {
		return err
	}

	call, err := r.calls.AcceptCall(ctx, p.CallID, client.UserID)
	if err != nil {
		return err
	}

	r.hub.SendToUser(call.CallerID, EventCallAccepted, callEventPayload{Call: call})
	r.reply(client, env, EventCallAccepted, callEventPayload{Call: call})
	return nil
}

func (r *Router) handleCallReject(ctx context.Context, client *Client, env Envelope) error {
	var p callIDPayload
	if err := r.decode(env, &p); err != nil {
		return err
	}

	call, err := r.calls.RejectCall(ctx, p.CallID, client.UserID)
	if err != nil {
		return err
	}

	r.hub.SendToUser(call.CallerID, EventCallRejected, callEventPayload{Call: call})
	r.reply(client, env, EventCallRejected, callEventPayload{Call: call})
	return nil
}

type callEndPayload struct {
	CallID int64  `json:"callId" validate:"required,gt=0"`
	Status string `json:"status" validate:"required,oneof=completed failed missed"`
}

type callEndedPayload struct {
	Call     *models.CallLog `json:"call"`
	Duration int64           `json:"duration"`
}

func (r *Router) handleCallEnd(ctx context.Context, client *Client, env Envelope) error {
	var p callEndPayload
	if err := r.decode(env, &p); err != nil {
		return err
	}

	result, err := r.calls.EndCall(ctx, p.CallID, client.UserID, p.Status)
	if err != nil {
		return err
	}

	r.hub.SendToUser(result.OtherID, EventCallEnded, callEndedPayload{
		Call:     result.Call,
		Duration: result.Call.DurationSeconds,
	})
	r.reply(client, env, EventCallEnded, callEndedPayload{
		Call:     result.Call,
		Duration: result.Call.DurationSeconds,
	})

	if result.Session != nil {
		r.hub.SendToUser(result.Call.CallerID, EventSessionEnded, result.Session)
		r.hub.SendToUser(result.Call.ReceiverID, EventSessionEnded, result.Session)
	}
	return nil
}

type callSignalPayload struct {
	CallID    int64 `json:"callId" validate:"required,gt=0"`
	SessionID int64 `json:"sessionId" validate:"required,gt=0"`
}

// handleCallSignal relays SDP offers/answers and ICE candidates between the
// two session participants. The payload is forwarded verbatim, tagged with
// the sender; nothing is parsed or persisted.
func (r *Router) handleCallSignal(ctx context.Context, client *Client, env Envelope) error {
	var p callSignalPayload
	if err := r.decode(env, &p); err != nil {
		return err
	}

	otherID, err := r.calls.RelaySignal(ctx, p.CallID, p.SessionID, client.UserID)
	if err != nil {
		return err
	}

	r.hub.SendToUser(otherID, env.Event, map[string]any{
		"from": client.UserID,
		"data": json.RawMessage(env.Data),
	})
	return nil
}
