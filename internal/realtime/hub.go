// Package realtime implements the in-process fan-out of lifecycle events to
// connected websocket clients. Clients join named rooms on demand; membership
// lives only for the duration of a connection.
package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Event is the envelope emitted to clients.
type Event struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// TechnicianRoom names the private room of one technician.
func TechnicianRoom(technicianID string) string {
	return "technician-" + technicianID
}

// RequestRoom names the room of one maintenance request.
func RequestRoom(requestID string) string {
	return "request-" + requestID
}

// Hub tracks connected clients and their room membership.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		rooms:   make(map[string]map[*Client]bool),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	close(c.send)
}

// Join adds a client to a room.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
}

// Leave removes a client from a room.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// BroadcastAll emits an event to every connected client. Emitting with no
// clients connected is a no-op, never an error.
func (h *Hub) BroadcastAll(eventType string, data any) {
	payload, err := marshalEvent(eventType, data)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.deliver(c, payload)
	}
}

// BroadcastToRoom emits an event only to members of the given room.
func (h *Hub) BroadcastToRoom(room, eventType string, data any) {
	payload, err := marshalEvent(eventType, data)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[room] {
		h.deliver(c, payload)
	}
}

// deliver enqueues a frame without blocking. A client whose send buffer is
// full is dropped; reconnecting rebuilds its membership. Callers hold h.mu.
func (h *Hub) deliver(c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		delete(h.clients, c)
		for room, members := range h.rooms {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
		close(c.send)
	}
}

func marshalEvent(eventType string, data any) ([]byte, error) {
	payload, err := json.Marshal(Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Printf("realtime: failed to marshal %s event: %v", eventType, err)
		return nil, err
	}
	return payload, nil
}
