package ws

import (
	"sync"

	"messenger-service/internal/models"
)

// Hub tracks live connections and their group-room subscriptions. A
// connection belongs to a room from the moment it joins until it leaves or
// disconnects; all of its subscriptions are dropped with the connection.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Conn
	rooms  map[int]map[string]*Conn
	joined map[string]map[int]struct{}
	byUser map[int]map[string]*Conn
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		conns:  make(map[string]*Conn),
		rooms:  make(map[int]map[string]*Conn),
		joined: make(map[string]map[int]struct{}),
		byUser: make(map[int]map[string]*Conn),
	}
}

// AddConnection registers a freshly upgraded connection.
func (h *Hub) AddConnection(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID()] = c
	if _, ok := h.byUser[c.UserID()]; !ok {
		h.byUser[c.UserID()] = make(map[string]*Conn)
	}
	h.byUser[c.UserID()][c.ID()] = c
}

// RemoveConnection drops the connection and every room subscription it
// holds.
func (h *Hub) RemoveConnection(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c.ID())
	if conns, ok := h.byUser[c.UserID()]; ok {
		delete(conns, c.ID())
		if len(conns) == 0 {
			delete(h.byUser, c.UserID())
		}
	}
	for roomID := range h.joined[c.ID()] {
		h.removeFromRoom(roomID, c.ID())
	}
	delete(h.joined, c.ID())
}

// Join subscribes the connection to a room. Joining a room twice is a
// no-op.
func (h *Hub) Join(c *Conn, roomID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.join(c, roomID)
}

// BulkJoin subscribes the connection to every listed room, used once per
// connection to resubscribe after reconnect.
func (h *Hub) BulkJoin(c *Conn, roomIDs []int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, roomID := range roomIDs {
		h.join(c, roomID)
	}
}

// Leave unsubscribes the connection from a room. Leaving a room the
// connection is not in is a no-op.
func (h *Hub) Leave(c *Conn, roomID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoom(roomID, c.ID())
	if rooms, ok := h.joined[c.ID()]; ok {
		delete(rooms, roomID)
	}
}

// LeaveUser unsubscribes every connection of the user from the room, used
// when a member is removed from a group server-side.
func (h *Hub) LeaveUser(roomID int, userID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for connID := range h.byUser[userID] {
		h.removeFromRoom(roomID, connID)
		if rooms, ok := h.joined[connID]; ok {
			delete(rooms, roomID)
		}
	}
}

// InRoom reports whether the connection is currently subscribed to the
// room.
func (h *Hub) InRoom(c *Conn, roomID int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.joined[c.ID()][roomID]
	return ok
}

// BroadcastRoom queues the event on every connection subscribed to the
// room, skipping connections owned by exceptUserID (0 skips nobody).
func (h *Hub) BroadcastRoom(roomID int, exceptUserID int, event models.SocketEvent) {
	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.rooms[roomID]))
	for _, c := range h.rooms[roomID] {
		if exceptUserID != 0 && c.UserID() == exceptUserID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Send(event)
	}
}

// BroadcastAll queues the event on every live connection.
func (h *Hub) BroadcastAll(event models.SocketEvent) {
	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Send(event)
	}
}

// SendToConn queues the event on one connection. Reports false when the
// connection is gone or its queue is full.
func (h *Hub) SendToConn(connID string, event models.SocketEvent) bool {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return c.Send(event)
}

func (h *Hub) join(c *Conn, roomID int) {
	if _, ok := h.conns[c.ID()]; !ok {
		return
	}
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*Conn)
	}
	h.rooms[roomID][c.ID()] = c
	if _, ok := h.joined[c.ID()]; !ok {
		h.joined[c.ID()] = make(map[int]struct{})
	}
	h.joined[c.ID()][roomID] = struct{}{}
}

func (h *Hub) removeFromRoom(roomID int, connID string) {
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
}
