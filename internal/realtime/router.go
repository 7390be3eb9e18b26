package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/listenline/ListenLineBack/internal/services"
	"github.com/rs/zerolog/log"
)

const handlerTimeout = 15 * time.Second

// Router dispatches inbound frames to event handlers. Business errors are
// answered with an error frame on the same connection; only a dead socket
// ends the loop.
type Router struct {
	hub           *Hub
	sessions      *services.SessionService
	calls         *services.CallService
	chats         *services.ChatService
	support       *services.SupportService
	notifications *services.NotificationService
	presence      PresenceRegistry
	validate      *validator.Validate
}

func NewRouter(
	hub *Hub,
	sessions *services.SessionService,
	calls *services.CallService,
	chats *services.ChatService,
	support *services.SupportService,
	notifications *services.NotificationService,
	presence PresenceRegistry,
) *Router {
	return &Router{
		hub:           hub,
		sessions:      sessions,
		calls:         calls,
		chats:         chats,
		support:       support,
		notifications: notifications,
		presence:      presence,
		validate:      validator.New(),
	}
}

// Serve owns one connection: register, pump frames, clean up.
func (r *Router) Serve(conn *websocket.Conn, userID int64, role string, staff bool) {
	client := NewClient(r.hub, conn, userID, role, staff)
	r.hub.Register(client)
	go client.WritePump()

	defer func() {
		r.hub.Unregister(client)
		r.handleDisconnect(client)
		_ = conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		r.dispatch(client, raw)
	}
}

func (r *Router) dispatch(client *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.fail(client, Envelope{}, services.ErrInvalidInput)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	var err error
	switch env.Event {
	case EventSessionGetOrCreate:
		err = r.handleSessionGetOrCreate(ctx, client, env)
	case EventSessionEnd:
		err = r.handleSessionEnd(ctx, client, env)
	case EventCallStart:
		err = r.handleCallStart(ctx, client, env)
	case EventCallAccept:
		err = r.handleCallAccept(ctx, client, env)
	case EventCallReject:
		err = r.handleCallReject(ctx, client, env)
	case EventCallEnd:
		err = r.handleCallEnd(ctx, client, env)
	case EventCallOffer, EventCallAnswer, EventCallICE:
		err = r.handleCallSignal(ctx, client, env)
	case EventChatJoin:
		err = r.handleChatJoin(ctx, client, env)
	case EventChatMessage:
		err = r.handleChatMessage(ctx, client, env)
	case EventChatTyping:
		err = r.handleChatTyping(ctx, client, env)
	case EventChatLeave:
		err = r.handleChatLeave(ctx, client, env)
	case EventSupportUserJoin:
		err = r.handleSupportUserJoin(ctx, client, env)
	case EventSupportAgentJoin:
		err = r.handleSupportAgentJoin(ctx, client, env)
	case EventSupportSend:
		err = r.handleSupportSend(ctx, client, env)
	case EventSupportTyping:
		err = r.handleSupportTyping(ctx, client, env)
	case EventSupportEnd:
		err = r.handleSupportEnd(ctx, client, env)
	default:
		err = services.ErrInvalidInput
	}

	if err != nil {
		log.Debug().
			Err(err).
			Str("event", env.Event).
			Int64("user", client.UserID).
			Msg("event handler failed")
		r.fail(client, env, err)
	}
}

// decode unmarshals and validates an event payload.
func (r *Router) decode(env Envelope, target any) error {
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, target); err != nil {
			return services.ErrInvalidInput
		}
	}
	return r.validate.Struct(target)
}

// reply answers the requesting connection only.
func (r *Router) reply(client *Client, env Envelope, event string, data any) {
	payload, err := encodeOutbound(Outbound{Event: event, ReplyTo: env.ID, Data: data})
	if err != nil {
		return
	}
	client.Enqueue(payload)
}

func (r *Router) fail(client *Client, env Envelope, err error) {
	payload, encErr := encodeOutbound(Outbound{Event: EventError, ReplyTo: env.ID, Data: wireError(err)})
	if encErr != nil {
		return
	}
	client.Enqueue(payload)
}

// handleDisconnect runs support-room garbage collection once the user's
// last connection is gone; other open devices keep their rooms alive.
func (r *Router) handleDisconnect(client *Client) {
	if r.presence.IsOnline(client.UserID) {
		return
	}
	for _, room := range r.support.HandleDisconnect(client.UserID) {
		r.hub.BroadcastRoom(room, EventSystemMessage, map[string]any{
			"message": "participant left the chat",
			"userId":  client.UserID,
		}, nil)
	}
}
