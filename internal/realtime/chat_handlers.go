package realtime

import (
	"context"

	"github.com/listenline/ListenLineBack/internal/models"
)

type chatJoinPayload struct {
	SessionID      int64  `json:"sessionId"`
	ListenerID     int64  `json:"listenerId"`
	ListenerUserID int64  `json:"listenerUserId"`
	Type           string `json:"type" validate:"omitempty,oneof=chat audio video"`
}

type chatJoinedPayload struct {
	SessionID int64  `json:"sessionId"`
	Room      string `json:"room"`
}

func (r *Router) handleChatJoin(ctx context.Context, client *Client, env Envelope) error {
	var p chatJoinPayload
	if err := r.decode(env, &p); err != nil {
		return err
	}

	sessionID := p.SessionID
	if sessionID == 0 {
		sessionType := p.Type
		if sessionType == "" {
			sessionType = models.SessionTypeChat
		}
		ref, err := r.sessions.ResolveListener(ctx, p.ListenerID, p.ListenerUserID)
		if err != nil {
			return err
		}
		session, _, err := r.sessions.GetOrCreateSession(ctx, client.UserID, ref.ListenerID, sessionType)
		if err != nil {
			return err
		}
		sessionID = session.ID
	}

	if _, err := r.sessions.EnsureParticipant(ctx, sessionID, client.UserID); err != nil {
		return err
	}

	room := SessionRoomKey(sessionID)
	r.hub.JoinRoom(client, room)
	r.reply(client, env, EventChatJoined, chatJoinedPayload{SessionID: sessionID, Room: room})
	return nil
}

type chatMessagePayload struct {
	SessionID   int64  `json:"sessionId" validate:"required,gt=0"`
	Message     string `json:"message" validate:"required"`
	MessageType string `json:"messageType" validate:"omitempty,oneof=text system"`
}

func (r *Router) handleChatMessage(ctx context.Context, client *Client, env Envelope) error {
	var p chatMessagePayload
	if err := r.decode(env, &p); err != nil {
		return err
	}

	delivery, err := r.chats.SendMessage(ctx, client.UserID, p.SessionID, p.Message, p.MessageType)
	if err != nil {
		return err
	}

	// Full session room: both participants, including the sender's other
	// devices.
	r.hub.BroadcastRoom(SessionRoomKey(p.SessionID), EventChatMessage, delivery.Message, nil)
	if env.ID != "" {
		r.reply(client, env, EventChatMessage, delivery.Message)
	}
	return nil
}

type chatTypingPayload struct {
	SessionID int64 `json:"sessionId" validate:"required,gt=0"`
	IsTyping  bool  `json:"isTyping"`
}

func (r *Router) handleChatTyping(ctx context.Context, client *Client, env Envelope) error {
	var p chatTypingPayload
	if err := r.decode(env, &p); err != nil {
		return err
	}

	if _, err := r.sessions.EnsureParticipant(ctx, p.SessionID, client.UserID); err != nil {
		return err
	}

	r.hub.BroadcastRoom(SessionRoomKey(p.SessionID), EventChatTyping, map[string]any{
		"sessionId": p.SessionID,
		"userId":    client.UserID,
		"isTyping":  p.IsTyping,
	}, client)
	return nil
}

type chatLeavePayload struct {
	SessionID int64 `json:"sessionId" validate:"required,gt=0"`
}

func (r *Router) handleChatLeave(_ context.Context, client *Client, env Envelope) error {
	var p chatLeavePayload
	if err := r.decode(env, &p); err != nil {
		return err
	}

	r.hub.LeaveRoom(client, SessionRoomKey(p.SessionID))
	r.reply(client, env, EventChatLeft, chatJoinedPayload{
		SessionID: p.SessionID,
		Room:      SessionRoomKey(p.SessionID),
	})
	return nil
}
