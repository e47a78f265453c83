package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newHubClient registers a pumpless client with a buffered send channel so
// broadcasts can be observed directly.
func newHubClient(h *Hub, buffer int) *Client {
	c := &Client{hub: h, send: make(chan []byte, buffer)}
	h.register(c)
	return c
}

func recvEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case raw := <-c.send:
		var ev Event
		require.NoError(t, json.Unmarshal(raw, &ev))
		return ev
	default:
		t.Fatal("expected a delivered event")
		return Event{}
	}
}

func TestBroadcastAll(t *testing.T) {
	h := NewHub()
	a := newHubClient(h, 4)
	b := newHubClient(h, 4)

	h.BroadcastAll("REQUEST_CREATED", map[string]string{"id": "r1"})

	for _, c := range []*Client{a, b} {
		ev := recvEvent(t, c)
		assert.Equal(t, "REQUEST_CREATED", ev.Type)
		assert.False(t, ev.Timestamp.IsZero())
	}
}

func TestBroadcastToRoom_OnlyMembers(t *testing.T) {
	h := NewHub()
	member := newHubClient(h, 4)
	outsider := newHubClient(h, 4)

	room := TechnicianRoom("tech-1")
	h.Join(member, room)

	h.BroadcastToRoom(room, "NEW_ASSIGNMENT", map[string]string{"id": "r1"})

	ev := recvEvent(t, member)
	assert.Equal(t, "NEW_ASSIGNMENT", ev.Type)
	assert.Empty(t, outsider.send)
}

func TestLeaveStopsDelivery(t *testing.T) {
	h := NewHub()
	c := newHubClient(h, 4)

	room := RequestRoom("r-9")
	h.Join(c, room)
	h.Leave(c, room)

	h.BroadcastToRoom(room, "REQUEST_UPDATED", nil)
	assert.Empty(t, c.send)

	// Broadcasting to a room with no members is a no-op.
	h.BroadcastToRoom(RequestRoom("missing"), "REQUEST_UPDATED", nil)
}

func TestJoinRequiresRegisteredClient(t *testing.T) {
	h := NewHub()
	stranger := &Client{hub: h, send: make(chan []byte, 1)}

	h.Join(stranger, RequestRoom("r-1"))
	h.BroadcastToRoom(RequestRoom("r-1"), "REQUEST_UPDATED", nil)
	assert.Empty(t, stranger.send)
}

func TestUnregisterCleansRooms(t *testing.T) {
	h := NewHub()
	c := newHubClient(h, 4)
	h.Join(c, TechnicianRoom("tech-2"))

	h.unregister(c)

	h.mu.Lock()
	assert.Empty(t, h.clients)
	assert.Empty(t, h.rooms)
	h.mu.Unlock()

	// The send channel is closed so the write pump terminates.
	_, open := <-c.send
	assert.False(t, open)

	// A second unregister must be harmless.
	h.unregister(c)
}

func TestSlowClientIsDropped(t *testing.T) {
	h := NewHub()
	slow := newHubClient(h, 1)
	fast := newHubClient(h, 4)
	h.Join(slow, RequestRoom("r-1"))

	// First frame fills the slow client's buffer, the second overflows it.
	h.BroadcastAll("STATUS_CHANGED", nil)
	h.BroadcastAll("STATUS_CHANGED", nil)

	h.mu.Lock()
	_, stillThere := h.clients[slow]
	roomMembers := len(h.rooms[RequestRoom("r-1")])
	h.mu.Unlock()

	assert.False(t, stillThere, "slow client should be evicted")
	assert.Zero(t, roomMembers)

	// The fast client received both frames.
	assert.Len(t, fast.send, 2)
}

func TestRoomNames(t *testing.T) {
	assert.Equal(t, "technician-t1", TechnicianRoom("t1"))
	assert.Equal(t, "request-r1", RequestRoom("r1"))
}
