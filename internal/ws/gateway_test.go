package ws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"messenger-service/internal/models"
	"messenger-service/internal/presence"
)

type fakeMembers struct {
	rooms map[int][]int
}

func (f *fakeMembers) IsMember(_ context.Context, groupID, userID int) (bool, error) {
	for _, id := range f.rooms[groupID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func newTestGateway(hub *Hub, members MembershipChecker) *Gateway {
	return NewGateway(hub, presence.NewRegistry(), nil, members, zap.NewNop().Sugar())
}

func clientEvent(t *testing.T, name string, data any) models.SocketEvent {
	t.Helper()
	event, err := models.NewSocketEvent(name, data)
	if err != nil {
		t.Fatal(err)
	}
	return event
}

func TestJoinGroupRequiresMembership(t *testing.T) {
	hub := NewHub()
	g := newTestGateway(hub, &fakeMembers{rooms: map[int][]int{10: {1}}})

	c := testConn("a", 1)
	hub.AddConnection(c)

	g.handleClientEvent(c, clientEvent(t, models.EventJoinGroup, models.JoinGroupPayload{GroupID: 10}))
	assert.True(t, hub.InRoom(c, 10))

	g.handleClientEvent(c, clientEvent(t, models.EventJoinGroup, models.JoinGroupPayload{GroupID: 11}))
	assert.False(t, hub.InRoom(c, 11))
}

func TestJoinUserGroupsFiltersToMemberRooms(t *testing.T) {
	hub := NewHub()
	g := newTestGateway(hub, &fakeMembers{rooms: map[int][]int{10: {1}, 12: {1}}})

	c := testConn("a", 1)
	hub.AddConnection(c)

	g.handleClientEvent(c, clientEvent(t, models.EventJoinUserGroups,
		models.JoinUserGroupsPayload{GroupIDs: []int{10, 11, 12}}))

	assert.True(t, hub.InRoom(c, 10))
	assert.False(t, hub.InRoom(c, 11))
	assert.True(t, hub.InRoom(c, 12))
}

func TestLeaveGroupDropsSubscription(t *testing.T) {
	hub := NewHub()
	g := newTestGateway(hub, &fakeMembers{rooms: map[int][]int{10: {1}}})

	c := testConn("a", 1)
	hub.AddConnection(c)
	hub.Join(c, 10)

	g.handleClientEvent(c, clientEvent(t, models.EventLeaveGroup, models.JoinGroupPayload{GroupID: 10}))
	assert.False(t, hub.InRoom(c, 10))
}

func TestUnknownClientEventIgnored(t *testing.T) {
	hub := NewHub()
	g := newTestGateway(hub, &fakeMembers{})

	c := testConn("a", 1)
	hub.AddConnection(c)

	g.handleClientEvent(c, models.SocketEvent{Event: "typing"})
	assert.Empty(t, drain(c))
}
