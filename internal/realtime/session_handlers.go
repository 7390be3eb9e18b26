package realtime

import (
	"context"

	"github.com/listenline/ListenLineBack/internal/models"
)

type sessionGetOrCreatePayload struct {
	ListenerID     int64  `json:"listenerId"`
	ListenerUserID int64  `json:"listenerUserId"`
	Type           string `json:"type" validate:"required,oneof=chat audio video"`
}

type sessionReadyPayload struct {
	Session *models.Session `json:"session"`
	Created bool            `json:"created"`
}

func (r *Router) handleSessionGetOrCreate(ctx context.Context, client *Client, env Envelope) error {
	var p sessionGetOrCreatePayload
	if err := r.decode(env, &p); err != nil {
		return err
	}

	ref, err := r.sessions.ResolveListener(ctx, p.ListenerID, p.ListenerUserID)
	if err != nil {
		return err
	}

	session, created, err := r.sessions.GetOrCreateSession(ctx, client.UserID, ref.ListenerID, p.Type)
	if err != nil {
		return err
	}

	r.reply(client, env, EventSessionReady, sessionReadyPayload{Session: session, Created: created})
	return nil
}

type sessionEndPayload struct {
	SessionID int64   `json:"sessionId" validate:"required,gt=0"`
	Reason    *string `json:"reason"`
}

func (r *Router) handleSessionEnd(ctx context.Context, client *Client, env Envelope) error {
	var p sessionEndPayload
	if err := r.decode(env, &p); err != nil {
		return err
	}

	participants, err := r.sessions.EnsureParticipant(ctx, p.SessionID, client.UserID)
	if err != nil {
		return err
	}

	session, err := r.sessions.EndSession(ctx, p.SessionID, client.UserID, p.Reason)
	if err != nil {
		return err
	}

	r.hub.SendToUser(participants.UserID, EventSessionEnded, session)
	r.hub.SendToUser(participants.ListenerUserID, EventSessionEnded, session)
	r.reply(client, env, EventSessionEnded, session)
	return nil
}
