package realtime

import (
	"context"

	"github.com/listenline/ListenLineBack/internal/services"
)

type supportJoinPayload struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
}

func (r *Router) handleSupportUserJoin(_ context.Context, client *Client, env Envelope) error {
	var p supportJoinPayload
	if err := r.decode(env, &p); err != nil {
		return err
	}

	room, err := r.support.UserJoin(client.UserID, client.Staff, p.UserID)
	if err != nil {
		return err
	}

	r.hub.JoinRoom(client, room)
	r.hub.BroadcastRoom(room, EventSystemMessage, map[string]any{
		"message": "joined the support chat",
		"userId":  client.UserID,
	}, client)
	r.reply(client, env, EventSystemMessage, map[string]any{"room": room})
	return nil
}

func (r *Router) handleSupportAgentJoin(_ context.Context, client *Client, env Envelope) error {
	var p supportJoinPayload
	if err := r.decode(env, &p); err != nil {
		return err
	}

	room, err := r.support.AgentJoin(client.UserID, client.Staff, p.UserID)
	if err != nil {
		return err
	}

	r.hub.JoinRoom(client, room)
	r.hub.BroadcastRoom(room, EventSystemMessage, map[string]any{
		"message": "support agent joined",
		"agentId": client.UserID,
		"online":  true,
	}, client)
	r.reply(client, env, EventSystemMessage, map[string]any{"room": room})
	return nil
}

type supportSendPayload struct {
	SessionID int64  `json:"sessionId"`
	Sender    int64  `json:"sender"`
	Receiver  int64  `json:"receiver" validate:"required,gt=0"`
	Message   string `json:"message" validate:"required"`
}

func (r *Router) handleSupportSend(ctx context.Context, client *Client, env Envelope) error {
	var p supportSendPayload
	if err := r.decode(env, &p); err != nil {
		return err
	}

	// The room is keyed by the end user's id: the actor for a user message,
	// the receiver for a staff message.
	roomUserID := client.UserID
	if client.Staff {
		roomUserID = p.Receiver
	}

	if !r.support.CanMessage(client.UserID, client.Staff, roomUserID) {
		return services.ErrForbidden
	}

	message, err := r.support.SaveMessage(ctx, roomUserID, client.UserID, p.Receiver, p.Message)
	if err != nil {
		return err
	}

	r.hub.BroadcastRoom(services.SupportRoomKey(roomUserID), EventReceiveMsg, message, nil)
	if env.ID != "" {
		r.reply(client, env, EventReceiveMsg, message)
	}
	return nil
}

type supportTypingPayload struct {
	UserID   int64 `json:"userId"`
	IsTyping bool  `json:"isTyping"`
}

func (r *Router) handleSupportTyping(_ context.Context, client *Client, env Envelope) error {
	var p supportTypingPayload
	if err := r.decode(env, &p); err != nil {
		return err
	}

	roomUserID := p.UserID
	if roomUserID == 0 {
		roomUserID = client.UserID
	}
	if !r.support.CanMessage(client.UserID, client.Staff, roomUserID) {
		return services.ErrForbidden
	}

	r.hub.BroadcastRoom(services.SupportRoomKey(roomUserID), EventSupportTyping, map[string]any{
		"userId":   client.UserID,
		"isTyping": p.IsTyping,
	}, client)
	return nil
}

type supportEndPayload struct {
	UserID    int64 `json:"userId" validate:"required,gt=0"`
	SessionID int64 `json:"sessionId"`
}

func (r *Router) handleSupportEnd(ctx context.Context, client *Client, env Envelope) error {
	var p supportEndPayload
	if err := r.decode(env, &p); err != nil {
		return err
	}

	ticket, err := r.support.EndChat(ctx, client.UserID, client.Staff, p.UserID)
	if err != nil {
		return err
	}

	room := services.SupportRoomKey(p.UserID)
	r.hub.BroadcastRoom(room, EventChatEnded, map[string]any{
		"ticketId": ticket.ID,
		"userId":   p.UserID,
	}, nil)
	r.hub.CloseRoom(room)
	r.reply(client, env, EventChatEnded, ticket)
	return nil
}
