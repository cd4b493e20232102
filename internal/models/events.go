package models

import "encoding/json"

// Server-to-client socket event names.
const (
	EventOnlineUsers     = "getOnlineUsers"
	EventNewMessage      = "newMessage"
	EventNewGroupMessage = "newGroupMessage"
	EventReactionAdded   = "messageReactionAdded"
	EventReactionRemoved = "messageReactionRemoved"
	EventGroupUpdated    = "groupUpdated"
	EventRemovedFromGrp  = "removedFromGroup"
	EventMessageRead     = "messageRead"
)

// Client-to-server socket event names.
const (
	EventJoinGroup      = "joinGroup"
	EventLeaveGroup     = "leaveGroup"
	EventJoinUserGroups = "joinUserGroups"
)

// Group update actions carried by groupUpdated events.
const (
	GroupActionMembersAdded     = "membersAdded"
	GroupActionMemberRemoved    = "memberRemoved"
	GroupActionMemberLeft       = "memberLeft"
	GroupActionProfileUpdated   = "profileUpdated"
	GroupActionAdminTransferred = "adminTransferred"
)

// SocketEvent is the wire envelope for every socket frame in either
// direction.
type SocketEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewSocketEvent marshals data into an envelope. Marshal failures are a
// programming error on the payload structs and reported to the caller.
func NewSocketEvent(event string, data any) (SocketEvent, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return SocketEvent{}, err
	}
	return SocketEvent{Event: event, Data: raw}, nil
}

// ReactionAddedPayload is pushed when a reaction is stored.
type ReactionAddedPayload struct {
	MessageID   int      `json:"message_id"`
	Reaction    Reaction `json:"reaction"`
	MessageType string   `json:"message_type"`
}

// ReactionRemovedPayload is pushed when a reaction is deleted.
type ReactionRemovedPayload struct {
	MessageID   int    `json:"message_id"`
	UserID      int    `json:"user_id"`
	Emoji       string `json:"emoji"`
	MessageType string `json:"message_type"`
}

// GroupUpdatedPayload is pushed on any group membership or profile change.
type GroupUpdatedPayload struct {
	Group  Group  `json:"group"`
	Action string `json:"action"`
}

// RemovedFromGroupPayload is pushed directly to a member removed by the
// admin, before their room subscription is dropped.
type RemovedFromGroupPayload struct {
	GroupID   int    `json:"group_id"`
	GroupName string `json:"group_name"`
}

// MessageReadPayload is pushed when a read receipt is recorded.
type MessageReadPayload struct {
	MessageID  int           `json:"message_id"`
	ReadBy     []ReadReceipt `json:"read_by"`
	ReadByUser int           `json:"read_by_user"`
}

// JoinGroupPayload carries the room id of joinGroup/leaveGroup requests.
type JoinGroupPayload struct {
	GroupID int `json:"group_id"`
}

// JoinUserGroupsPayload carries the bulk resubscription list sent once per
// connection. It is a subscription hint from the client, not an
// authorization source.
type JoinUserGroupsPayload struct {
	GroupIDs []int `json:"group_ids"`
}
