package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"messenger-service/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-token", 1, zap.NewNop().Sugar())
}

func mustEvent(t *testing.T, name string, data any) models.SocketEvent {
	t.Helper()
	event, err := models.NewSocketEvent(name, data)
	require.NoError(t, err)
	return event
}

func TestSendMessageConfirmsOptimisticEntry(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/messages/2", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.Message{ID: 40, SenderID: 1, ReceiverID: 2, Text: "hello"})
	}))

	msg, err := c.SendMessage(context.Background(), 2, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, 40, msg.ID)

	conv := c.Store().Conversation(PrivateConv(2))
	require.Len(t, conv, 1)
	assert.Equal(t, 40, conv[0].ID)
	assert.False(t, conv[0].Pending)
}

func TestSendMessageFailureDropsOptimisticEntry(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "cannot message yourself"})
	}))

	_, err := c.SendMessage(context.Background(), 2, "hello", nil)
	require.ErrorContains(t, err, "cannot message yourself")
	assert.Empty(t, c.Store().Conversation(PrivateConv(2)))
}

func TestHandleEventNewMessageFiledUnderPeer(t *testing.T) {
	c := New("http://localhost", "t", 1, zap.NewNop().Sugar())

	c.handleEvent(mustEvent(t, models.EventNewMessage,
		models.Message{ID: 7, SenderID: 2, ReceiverID: 1, Text: "hi"}))

	conv := c.Store().Conversation(PrivateConv(2))
	require.Len(t, conv, 1)
	assert.Equal(t, "hi", conv[0].Text)
}

func TestHandleEventGroupMessage(t *testing.T) {
	c := New("http://localhost", "t", 1, zap.NewNop().Sugar())

	c.handleEvent(mustEvent(t, models.EventNewGroupMessage,
		models.GroupMessage{ID: 8, GroupID: 10, SenderID: 2, Text: "hi all"}))

	conv := c.Store().Conversation(GroupConv(10))
	require.Len(t, conv, 1)
	assert.Equal(t, 8, conv[0].ID)
}

func TestHandleEventReactionLifecycle(t *testing.T) {
	c := New("http://localhost", "t", 1, zap.NewNop().Sugar())
	c.Store().Apply(GroupConv(10), Entry{ID: 8})

	msgID := 8
	c.handleEvent(mustEvent(t, models.EventReactionAdded, models.ReactionAddedPayload{
		MessageID:   8,
		MessageType: models.MessageTypeGroup,
		Reaction:    models.Reaction{GroupMessageID: &msgID, UserID: 2, Emoji: "🎉", MessageType: models.MessageTypeGroup},
	}))

	conv := c.Store().Conversation(GroupConv(10))
	require.Equal(t, models.ReactionMap{"🎉": []int{2}}, conv[0].Reactions)

	c.handleEvent(mustEvent(t, models.EventReactionRemoved, models.ReactionRemovedPayload{
		MessageID:   8,
		UserID:      2,
		Emoji:       "🎉",
		MessageType: models.MessageTypeGroup,
	}))

	conv = c.Store().Conversation(GroupConv(10))
	assert.Empty(t, conv[0].Reactions)
}

func TestHandleEventRemovedFromGroup(t *testing.T) {
	c := New("http://localhost", "t", 1, zap.NewNop().Sugar())
	c.Store().PutGroup(models.Group{ID: 10, Name: "team"})
	c.Store().Apply(GroupConv(10), Entry{ID: 8})

	c.handleEvent(mustEvent(t, models.EventRemovedFromGrp,
		models.RemovedFromGroupPayload{GroupID: 10, GroupName: "team"}))

	_, ok := c.Store().Group(10)
	assert.False(t, ok)
	assert.Empty(t, c.Store().Conversation(GroupConv(10)))
}

func TestHandleEventOnlineUsers(t *testing.T) {
	c := New("http://localhost", "t", 1, zap.NewNop().Sugar())

	c.handleEvent(mustEvent(t, models.EventOnlineUsers, []int{2, 5}))
	assert.Equal(t, []int{2, 5}, c.Store().OnlineUsers())
}

func TestUpdateNotificationsCoalesce(t *testing.T) {
	c := New("http://localhost", "t", 1, zap.NewNop().Sugar())

	var (
		mu      sync.Mutex
		batches [][]ConvKey
	)
	c.OnUpdate(func(keys []ConvKey) {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, keys)
	})

	c.handleEvent(mustEvent(t, models.EventNewGroupMessage,
		models.GroupMessage{ID: 8, GroupID: 10, SenderID: 2}))
	c.handleEvent(mustEvent(t, models.EventNewGroupMessage,
		models.GroupMessage{ID: 9, GroupID: 10, SenderID: 3}))
	c.handleEvent(mustEvent(t, models.EventNewMessage,
		models.Message{ID: 7, SenderID: 2, ReceiverID: 1}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []ConvKey{GroupConv(10), PrivateConv(2)}, batches[0])
}

func TestHandleEventMessageRead(t *testing.T) {
	c := New("http://localhost", "t", 1, zap.NewNop().Sugar())
	c.Store().PutGroup(models.Group{ID: 10})
	c.Store().Apply(GroupConv(10), Entry{ID: 8})

	c.handleEvent(mustEvent(t, models.EventMessageRead,
		models.MessageReadPayload{MessageID: 8, ReadByUser: 3}))

	conv := c.Store().Conversation(GroupConv(10))
	assert.Equal(t, []int{3}, conv[0].ReadBy)
}
