package client

import (
	"sort"
	"sync"

	"messenger-service/internal/models"
)

// ConvKey identifies one conversation: a private peer or a group room.
type ConvKey struct {
	Type string
	ID   int
}

// PrivateConv keys the conversation with another user.
func PrivateConv(peerID int) ConvKey {
	return ConvKey{Type: models.MessageTypePrivate, ID: peerID}
}

// GroupConv keys a group room.
func GroupConv(groupID int) ConvKey {
	return ConvKey{Type: models.MessageTypeGroup, ID: groupID}
}

// Entry is one rendered message in a conversation. Pending entries carry
// a negative id until the server assigns the real one.
type Entry struct {
	ID          int
	SenderID    int
	Text        string
	MessageType string
	Attachment  *models.Attachment
	Reactions   models.ReactionMap
	ReadBy      []int
	Pending     bool
}

type conversation struct {
	order   []int
	entries map[int]*Entry
}

func newConversation() *conversation {
	return &conversation{entries: make(map[int]*Entry)}
}

// Store is the client-side view of conversations. Writes come from two
// directions, REST responses and socket events, and either may arrive
// first; the store keeps one entry per server id regardless of order.
type Store struct {
	mu     sync.RWMutex
	convs  map[ConvKey]*conversation
	online map[int]struct{}
	groups map[int]models.Group

	nextTempID int
	tempOwner  map[int]ConvKey
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		convs:      make(map[ConvKey]*conversation),
		online:     make(map[int]struct{}),
		groups:     make(map[int]models.Group),
		nextTempID: -1,
		tempOwner:  make(map[int]ConvKey),
	}
}

func (s *Store) conv(key ConvKey) *conversation {
	c, ok := s.convs[key]
	if !ok {
		c = newConversation()
		s.convs[key] = c
	}
	return c
}

// AppendPending records an optimistic message before the server confirms
// it and returns its temporary id.
func (s *Store) AppendPending(key ConvKey, senderID int, text string, att *models.Attachment) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	tempID := s.nextTempID
	s.nextTempID--

	c := s.conv(key)
	c.entries[tempID] = &Entry{
		ID:          tempID,
		SenderID:    senderID,
		Text:        text,
		MessageType: models.MessageKindText,
		Attachment:  att,
		Pending:     true,
	}
	c.order = append(c.order, tempID)
	s.tempOwner[tempID] = key
	return tempID
}

// Confirm substitutes a pending entry with the server-assigned message.
// If the socket echo already delivered the message, the pending entry is
// simply dropped so the conversation holds a single copy.
func (s *Store) Confirm(tempID int, entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.tempOwner[tempID]
	if !ok {
		return
	}
	delete(s.tempOwner, tempID)

	c := s.conv(key)
	delete(c.entries, tempID)

	if _, exists := c.entries[entry.ID]; exists {
		c.order = removeID(c.order, tempID)
		return
	}

	entry.Pending = false
	c.entries[entry.ID] = &entry
	for i, id := range c.order {
		if id == tempID {
			c.order[i] = entry.ID
			return
		}
	}
	c.order = append(c.order, entry.ID)
}

// DropPending discards an optimistic entry after the send failed.
func (s *Store) DropPending(tempID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.tempOwner[tempID]
	if !ok {
		return
	}
	delete(s.tempOwner, tempID)
	c := s.conv(key)
	delete(c.entries, tempID)
	c.order = removeID(c.order, tempID)
}

// Apply adds a server message to the conversation. Duplicate ids are
// ignored, which also covers the echo arriving before the REST response.
func (s *Store) Apply(key ConvKey, entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.conv(key)
	if _, exists := c.entries[entry.ID]; exists {
		return
	}
	entry.Pending = false
	c.entries[entry.ID] = &entry
	c.order = append(c.order, entry.ID)
}

// ApplyHistory merges a fetched history page, oldest first, ahead of
// whatever live entries arrived while the page was in flight.
func (s *Store) ApplyHistory(key ConvKey, entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.conv(key)
	merged := make([]int, 0, len(entries)+len(c.order))
	for i := range entries {
		e := entries[i]
		if _, exists := c.entries[e.ID]; exists {
			continue
		}
		e.Pending = false
		c.entries[e.ID] = &e
		merged = append(merged, e.ID)
	}
	c.order = append(merged, c.order...)
}

// AddReaction records a reaction on a loaded message. Unknown messages
// are a no-op; the reaction map arrives with the next history fetch.
func (s *Store) AddReaction(key ConvKey, messageID int, emoji string, userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(key, messageID)
	if !ok {
		return
	}
	if entry.Reactions == nil {
		entry.Reactions = make(models.ReactionMap)
	}
	for _, id := range entry.Reactions[emoji] {
		if id == userID {
			return
		}
	}
	entry.Reactions[emoji] = append(entry.Reactions[emoji], userID)
}

// RemoveReaction removes one user's reaction and drops the emoji key when
// no reactor remains.
func (s *Store) RemoveReaction(key ConvKey, messageID int, emoji string, userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(key, messageID)
	if !ok || entry.Reactions == nil {
		return
	}
	users := entry.Reactions[emoji]
	for i, id := range users {
		if id == userID {
			users = append(users[:i], users[i+1:]...)
			break
		}
	}
	if len(users) == 0 {
		delete(entry.Reactions, emoji)
		return
	}
	entry.Reactions[emoji] = users
}

// SetReactions replaces a message's whole reaction map, used by the bulk
// resync fetch.
func (s *Store) SetReactions(key ConvKey, messageID int, reactions models.ReactionMap) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(key, messageID)
	if !ok {
		return
	}
	entry.Reactions = reactions
}

// MarkRead records that a user has read a group message.
func (s *Store) MarkRead(groupID, messageID, userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(GroupConv(groupID), messageID)
	if !ok {
		return
	}
	for _, id := range entry.ReadBy {
		if id == userID {
			return
		}
	}
	entry.ReadBy = append(entry.ReadBy, userID)
}

// Conversation returns the entries of one conversation in display order.
func (s *Store) Conversation(key ConvKey) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.convs[key]
	if !ok {
		return nil
	}
	out := make([]Entry, 0, len(c.order))
	for _, id := range c.order {
		if entry, ok := c.entries[id]; ok {
			out = append(out, *entry)
		}
	}
	return out
}

// SetOnlineUsers replaces the online set.
func (s *Store) SetOnlineUsers(userIDs []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.online = make(map[int]struct{}, len(userIDs))
	for _, id := range userIDs {
		s.online[id] = struct{}{}
	}
}

// IsOnline reports whether the user is currently connected.
func (s *Store) IsOnline(userID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.online[userID]
	return ok
}

// OnlineUsers returns the online set in ascending order.
func (s *Store) OnlineUsers() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]int, 0, len(s.online))
	for id := range s.online {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// PutGroup stores or replaces a group's profile and membership.
func (s *Store) PutGroup(group models.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[group.ID] = group
}

// RemoveGroup forgets a group and its conversation, used when this user
// is removed from the room.
func (s *Store) RemoveGroup(groupID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.groups, groupID)
	delete(s.convs, GroupConv(groupID))
}

// Group returns a stored group.
func (s *Store) Group(groupID int) (models.Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	group, ok := s.groups[groupID]
	return group, ok
}

// GroupIDs returns ids of all stored groups in ascending order.
func (s *Store) GroupIDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]int, 0, len(s.groups))
	for id := range s.groups {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Has reports whether a conversation holds the message.
func (s *Store) Has(key ConvKey, messageID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lookup(key, messageID)
	return ok
}

func (s *Store) conversationKeys(convType string) []ConvKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ConvKey, 0, len(s.convs))
	for key := range s.convs {
		if key.Type == convType {
			out = append(out, key)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) lookup(key ConvKey, messageID int) (*Entry, bool) {
	c, ok := s.convs[key]
	if !ok {
		return nil, false
	}
	entry, ok := c.entries[messageID]
	return entry, ok
}

func removeID(order []int, id int) []int {
	for i, v := range order {
		if v == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
