package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func drainOne(t *testing.T, client *Client) Outbound {
	t.Helper()
	select {
	case payload := <-client.send:
		var out Outbound
		require.NoError(t, json.Unmarshal(payload, &out))
		return out
	default:
		t.Fatal("expected a queued frame")
		return Outbound{}
	}
}

func requireEmpty(t *testing.T, client *Client) {
	t.Helper()
	select {
	case payload := <-client.send:
		t.Fatalf("expected no frame, got %s", payload)
	default:
	}
}

func TestSendToUserReachesEveryConnection(t *testing.T) {
	presence := NewMemoryPresence()
	hub := NewHub(presence)

	phone := NewClient(hub, nil, 1, "user", false)
	laptop := NewClient(hub, nil, 1, "user", false)
	other := NewClient(hub, nil, 2, "listener", false)
	hub.Register(phone)
	hub.Register(laptop)
	hub.Register(other)

	hub.SendToUser(1, "notification:new", map[string]int{"id": 9})

	for _, client := range []*Client{phone, laptop} {
		out := drainOne(t, client)
		require.Equal(t, "notification:new", out.Event)
	}
	requireEmpty(t, other)
}

func TestRegisterDrivesPresence(t *testing.T) {
	presence := NewMemoryPresence()
	hub := NewHub(presence)

	phone := NewClient(hub, nil, 1, "user", false)
	laptop := NewClient(hub, nil, 1, "user", false)
	hub.Register(phone)
	hub.Register(laptop)
	require.True(t, presence.IsOnline(1))

	hub.Unregister(phone)
	require.True(t, presence.IsOnline(1), "one live device keeps the user online")

	hub.Unregister(laptop)
	require.False(t, presence.IsOnline(1))
}

func TestBroadcastRoomSkipsExceptedClient(t *testing.T) {
	hub := NewHub(NewMemoryPresence())

	sender := NewClient(hub, nil, 1, "user", false)
	receiver := NewClient(hub, nil, 2, "listener", false)
	outsider := NewClient(hub, nil, 3, "user", false)
	hub.Register(sender)
	hub.Register(receiver)
	hub.Register(outsider)

	room := SessionRoomKey(10)
	hub.JoinRoom(sender, room)
	hub.JoinRoom(receiver, room)

	hub.BroadcastRoom(room, "chat:typing", map[string]bool{"typing": true}, sender)

	out := drainOne(t, receiver)
	require.Equal(t, "chat:typing", out.Event)
	requireEmpty(t, sender)
	requireEmpty(t, outsider)
}

func TestUnregisterLeavesJoinedRooms(t *testing.T) {
	hub := NewHub(NewMemoryPresence())

	client := NewClient(hub, nil, 1, "user", false)
	peer := NewClient(hub, nil, 2, "listener", false)
	hub.Register(client)
	hub.Register(peer)

	room := SessionRoomKey(10)
	hub.JoinRoom(client, room)
	hub.JoinRoom(peer, room)
	require.Equal(t, 2, hub.RoomSize(room))

	hub.Unregister(client)
	require.Equal(t, 1, hub.RoomSize(room))

	hub.BroadcastRoom(room, "chat:message", map[string]string{"m": "hi"}, nil)
	drainOne(t, peer)
}

func TestCloseRoomEvictsAllMembers(t *testing.T) {
	hub := NewHub(NewMemoryPresence())

	a := NewClient(hub, nil, 1, "user", false)
	b := NewClient(hub, nil, 2, "support", true)
	hub.Register(a)
	hub.Register(b)

	hub.JoinRoom(a, "support:1")
	hub.JoinRoom(b, "support:1")

	hub.CloseRoom("support:1")
	require.Equal(t, 0, hub.RoomSize("support:1"))
	require.Empty(t, a.rooms)
	require.Empty(t, b.rooms)
}

func TestSlowClientIsDropped(t *testing.T) {
	presence := NewMemoryPresence()
	hub := NewHub(presence)

	slow := NewClient(hub, nil, 1, "user", false)
	hub.Register(slow)
	hub.JoinRoom(slow, "support:1")

	// Fill the buffer, then one more to trip the drop path.
	for i := 0; i < cap(slow.send)+1; i++ {
		hub.SendToUser(1, "notification:new", i)
	}

	require.Empty(t, hub.clients[1], "slow client must be evicted from the hub")
	require.Equal(t, 0, hub.RoomSize("support:1"))

	// The send channel is closed; a late enqueue must not panic.
	slow.Enqueue([]byte("late"))
}
