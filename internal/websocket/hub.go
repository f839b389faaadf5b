// Package websocket is the connection gateway: it accepts websocket connections, gives
// each one a unique id, and offers publish/subscribe scoped to rooms plus unicast to a
// single connection.
//
// The hub never decides anything about rooms; it only knows which connections are
// subscribed where. The session coordinator drives it.
package websocket

import (
	"sync" // sync provides the mutex guarding the client and room maps

	"github.com/rs/zerolog/log" // zerolog is the structured logger used across the server
	"golang.org/x/time/rate"    // rate provides the token-bucket limiter for inbound events
)

// Client represents a single connected websocket client.
type Client struct {
	ID     string      // Unique per connection, generated on upgrade
	UserID string      // Identity subject from the auth token, if one was presented
	Name   string      // Display name from the auth token, used when join-room omits one
	Send   chan []byte // Buffered outbound frames; the write pump drains it onto the socket

	limiter *rate.Limiter       // Inbound event budget
	rooms   map[string]struct{} // Rooms this client is subscribed to; guarded by Hub.mu
}

// NewClient builds a client with an outbound buffer of sendBuffer frames and an inbound
// budget of eventRate events per second with the given burst.
func NewClient(id string, sendBuffer int, eventRate float64, eventBurst int) *Client {
	return &Client{
		ID:      id,
		Send:    make(chan []byte, sendBuffer),
		limiter: rate.NewLimiter(rate.Limit(eventRate), eventBurst),
		rooms:   make(map[string]struct{}),
	}
}

// Allow reports whether the client may send another event right now.
func (c *Client) Allow() bool {
	return c.limiter.Allow()
}

// Hub tracks every live connection and the room groups they subscribe to.
//
// Publish and Send never block: a client whose Send buffer is full is too slow to keep
// up, so it is dropped (its Send channel is closed, which makes the write pump close the
// socket, which surfaces as a disconnect). Dropping instead of blocking keeps one stuck
// browser tab from stalling every other room.
type Hub struct {
	// mu guards both maps below. Publish takes the full lock rather than an RLock because
	// dropping a slow client mutates the maps mid-broadcast.
	mu sync.RWMutex

	clients map[string]*Client          // connection id -> client, for unicast
	rooms   map[string]map[*Client]bool // room id -> set of subscribed clients, for publish
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[*Client]bool),
	}
}

// Register makes a client reachable by id.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
}

// Unregister removes a client from the hub and every room group and closes its Send
// channel. Calling it for a client that is already gone is a no-op.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	h.dropLocked(client)
	h.mu.Unlock()
}

// dropLocked forgets client everywhere; callers must hold h.mu.
func (h *Hub) dropLocked(client *Client) {
	// Already dropped (slow client, then its own disconnect): closing Send twice panics
	if current, ok := h.clients[client.ID]; !ok || current != client {
		return
	}
	delete(h.clients, client.ID)
	for roomID := range client.rooms {
		h.leaveLocked(client, roomID)
	}
	// Closing the channel tells the write pump to send a close frame and stop
	close(client.Send)
}

// leaveLocked removes client from one room group; callers must hold h.mu.
func (h *Hub) leaveLocked(client *Client, roomID string) {
	delete(client.rooms, roomID)
	if members, ok := h.rooms[roomID]; ok {
		delete(members, client)
		// Clean up the room's entry once nobody is subscribed, so the map does not grow forever
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// Subscribe adds the connection to a room group. Unknown connections are ignored.
func (h *Hub) Subscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// The connection may have closed while its join was queued in the coordinator
	client, ok := h.clients[connID]
	if !ok {
		return
	}
	// First subscriber for this room: initialise the inner set
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.rooms[roomID] = struct{}{}
}

// Unsubscribe removes the connection from a room group.
func (h *Hub) Unsubscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, ok := h.clients[connID]; ok {
		h.leaveLocked(client, roomID)
	}
}

// Publish queues frame for every connection subscribed to roomID at this moment.
func (h *Hub) Publish(roomID string, frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.rooms[roomID] {
		h.enqueueLocked(client, frame)
	}
}

// Send queues frame for a single connection.
func (h *Hub) Send(connID string, frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, ok := h.clients[connID]; ok {
		h.enqueueLocked(client, frame)
	}
}

// enqueueLocked hands frame to the client's write pump; callers must hold h.mu.
func (h *Hub) enqueueLocked(client *Client, frame []byte) {
	select {
	// Room in the buffer: the write pump picks it up
	case client.Send <- frame:
	// Buffer full: the client is not keeping up, so drop it rather than block everyone
	default:
		log.Warn().Str("conn", client.ID).Msg("send buffer full, dropping slow client")
		h.dropLocked(client)
	}
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns how many connections are subscribed to roomID.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
