package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/models"
)

func testConn(id string, userID int) *Conn {
	return NewConn(nil, ConnInfo{ConnID: id, UserID: userID})
}

func drain(c *Conn) []models.SocketEvent {
	var events []models.SocketEvent
	for {
		select {
		case ev := <-c.send:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestJoinLeaveIdempotent(t *testing.T) {
	hub := NewHub()
	c := testConn("a", 1)
	hub.AddConnection(c)

	hub.Join(c, 10)
	hub.Join(c, 10)
	assert.True(t, hub.InRoom(c, 10))

	hub.Leave(c, 10)
	assert.False(t, hub.InRoom(c, 10))

	// leave before any join is a no-op
	hub.Leave(c, 99)
	assert.False(t, hub.InRoom(c, 99))
}

func TestBulkJoin(t *testing.T) {
	hub := NewHub()
	c := testConn("a", 1)
	hub.AddConnection(c)

	hub.BulkJoin(c, []int{1, 2, 3})
	for _, roomID := range []int{1, 2, 3} {
		assert.True(t, hub.InRoom(c, roomID))
	}
}

func TestRemoveConnectionDropsSubscriptions(t *testing.T) {
	hub := NewHub()
	c := testConn("a", 1)
	hub.AddConnection(c)
	hub.BulkJoin(c, []int{1, 2})

	hub.RemoveConnection(c)

	hub.BroadcastRoom(1, 0, models.SocketEvent{Event: "x"})
	assert.Empty(t, drain(c))
	assert.False(t, hub.SendToConn("a", models.SocketEvent{Event: "x"}))
}

func TestBroadcastRoomExcludesUser(t *testing.T) {
	hub := NewHub()
	sender := testConn("a", 1)
	other := testConn("b", 2)
	hub.AddConnection(sender)
	hub.AddConnection(other)
	hub.Join(sender, 7)
	hub.Join(other, 7)

	hub.BroadcastRoom(7, 1, models.SocketEvent{Event: models.EventNewGroupMessage})

	assert.Empty(t, drain(sender))
	events := drain(other)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventNewGroupMessage, events[0].Event)
}

func TestLeaveUserDropsAllUserConnections(t *testing.T) {
	hub := NewHub()
	c1 := testConn("a", 1)
	c2 := testConn("b", 1)
	hub.AddConnection(c1)
	hub.AddConnection(c2)
	hub.Join(c1, 5)
	hub.Join(c2, 5)

	hub.LeaveUser(5, 1)

	assert.False(t, hub.InRoom(c1, 5))
	assert.False(t, hub.InRoom(c2, 5))
}

func TestBroadcastAll(t *testing.T) {
	hub := NewHub()
	c1 := testConn("a", 1)
	c2 := testConn("b", 2)
	hub.AddConnection(c1)
	hub.AddConnection(c2)

	hub.BroadcastAll(models.SocketEvent{Event: models.EventOnlineUsers})

	require.Len(t, drain(c1), 1)
	require.Len(t, drain(c2), 1)
}

func TestSendToConn(t *testing.T) {
	hub := NewHub()
	c := testConn("a", 1)
	hub.AddConnection(c)

	assert.True(t, hub.SendToConn("a", models.SocketEvent{Event: models.EventNewMessage}))
	assert.False(t, hub.SendToConn("missing", models.SocketEvent{Event: models.EventNewMessage}))

	events := drain(c)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventNewMessage, events[0].Event)
}

func TestSendAfterCloseDropped(t *testing.T) {
	c := testConn("a", 1)
	c.Close()
	assert.False(t, c.Send(models.SocketEvent{Event: "x"}))
}
