package realtime

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub owns connection and room membership. Personal channels are keyed by
// user id so every component can target "this user" without knowing which
// device is connected; a user with several tabs simply has several clients
// under the same key.
type Hub struct {
	mu       sync.RWMutex
	clients  map[int64]map[*Client]struct{}
	rooms    map[string]map[*Client]struct{}
	presence PresenceRegistry
}

func NewHub(presence PresenceRegistry) *Hub {
	return &Hub{
		clients:  make(map[int64]map[*Client]struct{}),
		rooms:    make(map[string]map[*Client]struct{}),
		presence: presence,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	set, ok := h.clients[client.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[client.UserID] = set
	}
	set[client] = struct{}{}
	h.mu.Unlock()

	h.presence.Connected(client.UserID, client.ConnID)
	log.Debug().Int64("user", client.UserID).Str("conn", client.ConnID).Msg("client registered")
}

// Unregister drops the client from its personal channel and, through the
// client's own room list, from every room it joined — no scan over all
// rooms.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if set, ok := h.clients[client.UserID]; ok {
		if _, exists := set[client]; exists {
			delete(set, client)
			client.closeSend()
		}
		if len(set) == 0 {
			delete(h.clients, client.UserID)
		}
	}
	for room := range client.rooms {
		h.removeFromRoomLocked(client, room)
	}
	h.mu.Unlock()

	h.presence.Disconnected(client.UserID, client.ConnID)
	log.Debug().Int64("user", client.UserID).Str("conn", client.ConnID).Msg("client unregistered")
}

func (h *Hub) JoinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	client.rooms[room] = struct{}{}
}

func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoomLocked(client, room)
}

// CloseRoom evicts every member; used when a support chat is ended.
func (h *Hub) CloseRoom(room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.rooms[room] {
		delete(client.rooms, room)
	}
	delete(h.rooms, room)
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) removeFromRoomLocked(client *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(client.rooms, room)
}

// SendToUser delivers an event to every live connection of one user.
func (h *Hub) SendToUser(userID int64, event string, data any) {
	payload, err := encodeOutbound(Outbound{Event: event, Data: data})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendToUserLocked(userID, payload)
}

// BroadcastRoom delivers an event to every room member, optionally skipping
// one connection (typing indicators exclude the sender).
func (h *Hub) BroadcastRoom(room string, event string, data any, except *Client) {
	payload, err := encodeOutbound(Outbound{Event: event, Data: data})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.rooms[room] {
		if client == except {
			continue
		}
		h.enqueueLocked(client, payload)
	}
}

func (h *Hub) sendToUserLocked(userID int64, payload []byte) {
	for client := range h.clients[userID] {
		h.enqueueLocked(client, payload)
	}
}

// enqueueLocked drops clients whose send buffer is full rather than block
// the hub on a slow reader.
func (h *Hub) enqueueLocked(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		if set, ok := h.clients[client.UserID]; ok {
			delete(set, client)
			if len(set) == 0 {
				delete(h.clients, client.UserID)
			}
		}
		for room := range client.rooms {
			h.removeFromRoomLocked(client, room)
		}
		client.closeSend()
		log.Warn().Int64("user", client.UserID).Str("conn", client.ConnID).Msg("slow client dropped")
	}
}

func encodeOutbound(out Outbound) ([]byte, error) {
	payload, err := json.Marshal(out)
	if err != nil {
		log.Error().Err(err).Str("event", out.Event).Msg("encode outbound frame")
		return nil, err
	}
	return payload, nil
}
