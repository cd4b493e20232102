// Package presence tracks which users currently hold a live socket
// connection. The registry is the authoritative answer to "is user X
// reachable, and on which connection?".
package presence

import (
	"sort"
	"sync"
)

// Registry maps a user id to the id of their active connection. One entry
// per user: a new connection for the same user overwrites the old one. The
// in-memory implementation below is single-process; a multi-instance
// deployment would swap in a shared store behind this interface.
type Registry interface {
	// Register records connID as the user's active connection,
	// overwriting any previous entry (last-connect-wins).
	Register(userID int, connID string)
	// Unregister removes the user's entry only if connID is still the
	// one on record, so a stale disconnect cannot evict a newer
	// connection. Reports whether an entry was removed.
	Unregister(userID int, connID string) bool
	// Lookup returns the user's active connection id, if any.
	Lookup(userID int) (string, bool)
	// OnlineUsers returns the sorted ids of all registered users.
	OnlineUsers() []int
}

type memoryRegistry struct {
	mu    sync.RWMutex
	conns map[int]string
}

// NewRegistry returns an empty in-memory registry.
func NewRegistry() Registry {
	return &memoryRegistry{conns: make(map[int]string)}
}

func (r *memoryRegistry) Register(userID int, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[userID] = connID
}

func (r *memoryRegistry) Unregister(userID int, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.conns[userID]; !ok || current != connID {
		return false
	}
	delete(r.conns, userID)
	return true
}

func (r *memoryRegistry) Lookup(userID int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.conns[userID]
	return connID, ok
}

func (r *memoryRegistry) OnlineUsers() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]int, 0, len(r.conns))
	for userID := range r.conns {
		users = append(users, userID)
	}
	sort.Ints(users)
	return users
}
