// Package client is the Go consumer of the messenger service: a REST
// caller plus a socket listener that keep a local Store in sync with the
// server, including catch-up after a reconnect.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"messenger-service/internal/models"
)

const (
	requestTimeout   = 10 * time.Second
	readMarkInterval = 500 * time.Millisecond
	updateInterval   = 100 * time.Millisecond
	resyncPageSize   = 50
)

// Client talks to one messenger service on behalf of one user.
type Client struct {
	baseURL string
	token   string
	userID  int
	http    *http.Client
	dialer  *websocket.Dialer
	store   *Store
	logger  *zap.SugaredLogger

	mu       sync.Mutex
	sock     *websocket.Conn
	onUpdate func([]ConvKey)

	readMarks *Coalescer[int]
	updates   *Coalescer[ConvKey]
}

// New constructs a Client. The store starts empty and fills on Connect.
func New(baseURL, token string, userID int, logger *zap.SugaredLogger) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		userID:  userID,
		http:    &http.Client{Timeout: requestTimeout},
		dialer:  websocket.DefaultDialer,
		store:   NewStore(),
		logger:  logger,
	}
	c.readMarks = NewCoalescer(readMarkInterval, c.flushReadMarks)
	c.updates = NewCoalescer(updateInterval, c.flushUpdates)
	return c
}

// OnUpdate registers a callback receiving the conversations touched by
// socket events. Bursts collapse into one call with deduplicated keys.
func (c *Client) OnUpdate(fn func([]ConvKey)) {
	c.mu.Lock()
	c.onUpdate = fn
	c.mu.Unlock()
}

func (c *Client) touched(key ConvKey) {
	c.updates.Add(key)
}

func (c *Client) flushUpdates(keys []ConvKey) {
	c.mu.Lock()
	fn := c.onUpdate
	c.mu.Unlock()
	if fn == nil {
		return
	}

	seen := make(map[ConvKey]struct{}, len(keys))
	uniq := keys[:0]
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		uniq = append(uniq, key)
	}
	fn(uniq)
}

// Store exposes the client's local state.
func (c *Client) Store() *Store {
	return c.store
}

// SendMessage sends a private message. The text shows up in the local
// conversation immediately under a temporary id and is reconciled when the
// server responds.
func (c *Client) SendMessage(ctx context.Context, receiverID int, text string, att *models.Attachment) (models.Message, error) {
	key := PrivateConv(receiverID)
	tempID := c.store.AppendPending(key, c.userID, text, att)

	var msg models.Message
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/messages/%d", receiverID),
		map[string]any{"text": text, "attachment": att}, &msg)
	if err != nil {
		c.store.DropPending(tempID)
		return models.Message{}, err
	}
	c.store.Confirm(tempID, messageEntry(msg))
	return msg, nil
}

// SendGroupMessage sends a message to a group room, with the same
// optimistic local append.
func (c *Client) SendGroupMessage(ctx context.Context, groupID int, text string, att *models.Attachment) (models.GroupMessage, error) {
	key := GroupConv(groupID)
	tempID := c.store.AppendPending(key, c.userID, text, att)

	var msg models.GroupMessage
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/groups/%d/messages", groupID),
		map[string]any{"text": text, "attachment": att}, &msg)
	if err != nil {
		c.store.DropPending(tempID)
		return models.GroupMessage{}, err
	}
	c.store.Confirm(tempID, groupMessageEntry(msg))
	return msg, nil
}

// AddReaction stores an emoji reaction on a message.
func (c *Client) AddReaction(ctx context.Context, messageID int, messageType, emoji string) error {
	err := c.doJSON(ctx, http.MethodPost, "/reactions",
		map[string]any{"message_id": messageID, "message_type": messageType, "emoji": emoji}, nil)
	if err != nil {
		return err
	}
	c.store.AddReaction(convKeyFor(messageType, messageID, c.store), messageID, emoji, c.userID)
	return nil
}

// RemoveReaction removes this user's reaction identified by message and
// emoji.
func (c *Client) RemoveReaction(ctx context.Context, messageID int, messageType, emoji string) error {
	err := c.doJSON(ctx, http.MethodPost, "/reactions/remove",
		map[string]any{"message_id": messageID, "message_type": messageType, "emoji": emoji}, nil)
	if err != nil {
		return err
	}
	c.store.RemoveReaction(convKeyFor(messageType, messageID, c.store), messageID, emoji, c.userID)
	return nil
}

// MarkRead queues a read receipt. Receipts are coalesced and sent as one
// bulk request.
func (c *Client) MarkRead(messageID int) {
	c.readMarks.Add(messageID)
}

func (c *Client) flushReadMarks(messageIDs []int) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := c.doJSON(ctx, http.MethodPost, "/read-receipts/bulk",
		map[string]any{"message_ids": messageIDs}, nil); err != nil {
		c.logger.Warnw("bulk read receipt failed", "error", err, "count", len(messageIDs))
	}
}

// Connect dials the socket endpoint, resynchronizes local state, and
// starts consuming events until the context is cancelled or the
// connection drops.
func (c *Client) Connect(ctx context.Context) error {
	wsURL, err := c.socketURL()
	if err != nil {
		return err
	}

	sock, _, err := c.dialer.DialContext(ctx, wsURL, http.Header{
		"Authorization": []string{"Bearer " + c.token},
	})
	if err != nil {
		return fmt.Errorf("dial socket: %w", err)
	}

	c.mu.Lock()
	c.sock = sock
	c.mu.Unlock()

	if err := c.Resync(ctx); err != nil {
		sock.Close()
		return fmt.Errorf("resync: %w", err)
	}

	go c.readLoop(ctx, sock)
	return nil
}

// Close stops the socket and flushes pending read receipts.
func (c *Client) Close() error {
	c.readMarks.Stop()
	c.updates.Stop()

	c.mu.Lock()
	sock := c.sock
	c.sock = nil
	c.mu.Unlock()

	if sock != nil {
		return sock.Close()
	}
	return nil
}

// Resync rebuilds local state after a (re)connect: fetch the user's
// groups, resubscribe to their rooms in one frame, load the latest page
// of each conversation, and restore reaction maps with one bulk call per
// message kind.
func (c *Client) Resync(ctx context.Context) error {
	var groupsResp struct {
		Groups []models.Group `json:"groups"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/groups", nil, &groupsResp); err != nil {
		return err
	}

	groupIDs := make([]int, 0, len(groupsResp.Groups))
	for _, group := range groupsResp.Groups {
		c.store.PutGroup(group)
		groupIDs = append(groupIDs, group.ID)
	}
	if err := c.sendEvent(models.EventJoinUserGroups, models.JoinUserGroupsPayload{GroupIDs: groupIDs}); err != nil {
		return err
	}

	var groupMessageIDs []int
	for _, groupID := range groupIDs {
		var resp struct {
			Messages []models.GroupMessage `json:"messages"`
		}
		path := fmt.Sprintf("/groups/%d/messages?limit=%d", groupID, resyncPageSize)
		if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return err
		}
		entries := make([]Entry, 0, len(resp.Messages))
		for _, msg := range resp.Messages {
			entries = append(entries, groupMessageEntry(msg))
			groupMessageIDs = append(groupMessageIDs, msg.ID)
		}
		c.store.ApplyHistory(GroupConv(groupID), entries)
	}

	return c.restoreReactions(ctx, groupMessageIDs, models.MessageTypeGroup)
}

// LoadConversation fetches one page of a private conversation into the
// store and restores its reaction maps.
func (c *Client) LoadConversation(ctx context.Context, peerID, page int) error {
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	path := fmt.Sprintf("/messages/%d?limit=%d&page=%d", peerID, resyncPageSize, page)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return err
	}

	entries := make([]Entry, 0, len(resp.Messages))
	ids := make([]int, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		entries = append(entries, messageEntry(msg))
		ids = append(ids, msg.ID)
	}
	c.store.ApplyHistory(PrivateConv(peerID), entries)
	return c.restoreReactions(ctx, ids, models.MessageTypePrivate)
}

func (c *Client) restoreReactions(ctx context.Context, messageIDs []int, messageType string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	var resp struct {
		Reactions map[int]models.ReactionMap `json:"reactions"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/reactions/bulk",
		map[string]any{"message_ids": messageIDs, "message_type": messageType}, &resp)
	if err != nil {
		return err
	}
	for messageID, reactions := range resp.Reactions {
		c.store.SetReactions(convKeyFor(messageType, messageID, c.store), messageID, reactions)
	}
	return nil
}

func (c *Client) readLoop(ctx context.Context, sock *websocket.Conn) {
	defer sock.Close()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		var event models.SocketEvent
		if err := sock.ReadJSON(&event); err != nil {
			c.logger.Infow("socket closed", "error", err)
			return
		}
		c.handleEvent(event)
	}
}

func (c *Client) handleEvent(event models.SocketEvent) {
	switch event.Event {
	case models.EventOnlineUsers:
		var userIDs []int
		if c.decode(event, &userIDs) {
			c.store.SetOnlineUsers(userIDs)
		}

	case models.EventNewMessage:
		var msg models.Message
		if c.decode(event, &msg) {
			peerID := msg.SenderID
			if peerID == c.userID {
				peerID = msg.ReceiverID
			}
			c.store.Apply(PrivateConv(peerID), messageEntry(msg))
			c.touched(PrivateConv(peerID))
		}

	case models.EventNewGroupMessage:
		var msg models.GroupMessage
		if c.decode(event, &msg) {
			c.store.Apply(GroupConv(msg.GroupID), groupMessageEntry(msg))
			c.touched(GroupConv(msg.GroupID))
		}

	case models.EventReactionAdded:
		var payload models.ReactionAddedPayload
		if c.decode(event, &payload) {
			key := convKeyFor(payload.MessageType, payload.MessageID, c.store)
			c.store.AddReaction(key, payload.MessageID, payload.Reaction.Emoji, payload.Reaction.UserID)
			c.touched(key)
		}

	case models.EventReactionRemoved:
		var payload models.ReactionRemovedPayload
		if c.decode(event, &payload) {
			key := convKeyFor(payload.MessageType, payload.MessageID, c.store)
			c.store.RemoveReaction(key, payload.MessageID, payload.Emoji, payload.UserID)
			c.touched(key)
		}

	case models.EventGroupUpdated:
		var payload models.GroupUpdatedPayload
		if c.decode(event, &payload) {
			c.store.PutGroup(payload.Group)
		}

	case models.EventRemovedFromGrp:
		var payload models.RemovedFromGroupPayload
		if c.decode(event, &payload) {
			c.store.RemoveGroup(payload.GroupID)
		}

	case models.EventMessageRead:
		var payload models.MessageReadPayload
		if c.decode(event, &payload) {
			groupID, ok := c.groupForMessage(payload.MessageID)
			if ok {
				c.store.MarkRead(groupID, payload.MessageID, payload.ReadByUser)
				c.touched(GroupConv(groupID))
			}
		}

	default:
		c.logger.Debugw("unhandled socket event", "event", event.Event)
	}
}

func (c *Client) decode(event models.SocketEvent, out any) bool {
	if err := json.Unmarshal(event.Data, out); err != nil {
		c.logger.Warnw("bad socket payload", "event", event.Event, "error", err)
		return false
	}
	return true
}

func (c *Client) sendEvent(name string, data any) error {
	event, err := models.NewSocketEvent(name, data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sock == nil {
		return fmt.Errorf("socket not connected")
	}
	return c.sock.WriteJSON(event)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) socketURL() (string, error) {
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/ws"
	return parsed.String(), nil
}

// groupForMessage scans stored group conversations for the message. Read
// events for unloaded messages are dropped.
func (c *Client) groupForMessage(messageID int) (int, bool) {
	for _, groupID := range c.store.GroupIDs() {
		if c.store.Has(GroupConv(groupID), messageID) {
			return groupID, true
		}
	}
	return 0, false
}

// convKeyFor maps a reaction target to its conversation key. Private
// reactions land in whichever loaded conversation holds the message.
func convKeyFor(messageType string, messageID int, store *Store) ConvKey {
	if messageType == models.MessageTypeGroup {
		for _, groupID := range store.GroupIDs() {
			if store.Has(GroupConv(groupID), messageID) {
				return GroupConv(groupID)
			}
		}
		return ConvKey{Type: models.MessageTypeGroup}
	}
	for _, key := range store.conversationKeys(models.MessageTypePrivate) {
		if store.Has(key, messageID) {
			return key
		}
	}
	return ConvKey{Type: models.MessageTypePrivate}
}

func messageEntry(msg models.Message) Entry {
	return Entry{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		Text:        msg.Text,
		MessageType: msg.MessageType,
		Attachment:  msg.Attachment,
	}
}

func groupMessageEntry(msg models.GroupMessage) Entry {
	readBy := make([]int, 0, len(msg.ReadBy))
	for _, receipt := range msg.ReadBy {
		readBy = append(readBy, receipt.UserID)
	}
	return Entry{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		Text:        msg.Text,
		MessageType: msg.MessageType,
		Attachment:  msg.Attachment,
		ReadBy:      readBy,
	}
}
