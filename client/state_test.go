package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/models"
)

func TestPendingConfirmSubstitutesServerID(t *testing.T) {
	store := NewStore()
	key := PrivateConv(2)

	tempID := store.AppendPending(key, 1, "hello", nil)
	require.Negative(t, tempID)

	conv := store.Conversation(key)
	require.Len(t, conv, 1)
	assert.True(t, conv[0].Pending)

	store.Confirm(tempID, Entry{ID: 40, SenderID: 1, Text: "hello"})

	conv = store.Conversation(key)
	require.Len(t, conv, 1)
	assert.Equal(t, 40, conv[0].ID)
	assert.False(t, conv[0].Pending)
}

func TestEchoBeforeConfirmKeepsOneCopy(t *testing.T) {
	store := NewStore()
	key := PrivateConv(2)

	tempID := store.AppendPending(key, 1, "hello", nil)

	// Socket echo lands before the REST response.
	store.Apply(key, Entry{ID: 40, SenderID: 1, Text: "hello"})
	store.Confirm(tempID, Entry{ID: 40, SenderID: 1, Text: "hello"})

	conv := store.Conversation(key)
	require.Len(t, conv, 1)
	assert.Equal(t, 40, conv[0].ID)
}

func TestApplyIgnoresDuplicateID(t *testing.T) {
	store := NewStore()
	key := GroupConv(10)

	store.Apply(key, Entry{ID: 7, Text: "first"})
	store.Apply(key, Entry{ID: 7, Text: "second"})

	conv := store.Conversation(key)
	require.Len(t, conv, 1)
	assert.Equal(t, "first", conv[0].Text)
}

func TestDropPendingRemovesEntry(t *testing.T) {
	store := NewStore()
	key := PrivateConv(2)

	tempID := store.AppendPending(key, 1, "hello", nil)
	store.DropPending(tempID)

	assert.Empty(t, store.Conversation(key))
}

func TestApplyHistoryMergesAheadOfLiveEntries(t *testing.T) {
	store := NewStore()
	key := GroupConv(10)

	// A live message arrives while the history page is in flight.
	store.Apply(key, Entry{ID: 30, Text: "live"})
	store.ApplyHistory(key, []Entry{{ID: 10, Text: "old"}, {ID: 20, Text: "older"}})

	conv := store.Conversation(key)
	require.Len(t, conv, 3)
	assert.Equal(t, []int{10, 20, 30}, []int{conv[0].ID, conv[1].ID, conv[2].ID})
}

func TestReactionAddAndRemove(t *testing.T) {
	store := NewStore()
	key := GroupConv(10)
	store.Apply(key, Entry{ID: 7})

	store.AddReaction(key, 7, "👍", 1)
	store.AddReaction(key, 7, "👍", 2)
	store.AddReaction(key, 7, "👍", 2)

	conv := store.Conversation(key)
	require.Equal(t, models.ReactionMap{"👍": []int{1, 2}}, conv[0].Reactions)

	store.RemoveReaction(key, 7, "👍", 1)
	store.RemoveReaction(key, 7, "👍", 2)

	conv = store.Conversation(key)
	assert.NotContains(t, conv[0].Reactions, "👍")
}

func TestReactionOnUnloadedMessageIsNoop(t *testing.T) {
	store := NewStore()
	key := GroupConv(10)

	store.AddReaction(key, 99, "👍", 1)
	store.RemoveReaction(key, 99, "👍", 1)

	assert.Empty(t, store.Conversation(key))
}

func TestMarkReadDeduplicates(t *testing.T) {
	store := NewStore()
	store.Apply(GroupConv(10), Entry{ID: 7})

	store.MarkRead(10, 7, 2)
	store.MarkRead(10, 7, 2)
	store.MarkRead(10, 7, 3)

	conv := store.Conversation(GroupConv(10))
	assert.Equal(t, []int{2, 3}, conv[0].ReadBy)
}

func TestRemoveGroupForgetsConversation(t *testing.T) {
	store := NewStore()
	store.PutGroup(models.Group{ID: 10, Name: "team"})
	store.Apply(GroupConv(10), Entry{ID: 7})

	store.RemoveGroup(10)

	_, ok := store.Group(10)
	assert.False(t, ok)
	assert.Empty(t, store.Conversation(GroupConv(10)))
}

func TestOnlineUsers(t *testing.T) {
	store := NewStore()
	store.SetOnlineUsers([]int{3, 1})

	assert.True(t, store.IsOnline(1))
	assert.False(t, store.IsOnline(2))
	assert.Equal(t, []int{1, 3}, store.OnlineUsers())

	store.SetOnlineUsers([]int{1})
	assert.False(t, store.IsOnline(3))
}
