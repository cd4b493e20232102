// Package fanout routes domain events to the live connections that should
// see them. Delivery is at-most-once: offline targets are skipped and push
// failures are logged, never reported to the writer.
package fanout

import (
	"context"

	"go.uber.org/zap"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
)

// Deliverer is the subset of the hub the router pushes through.
type Deliverer interface {
	BroadcastRoom(roomID int, exceptUserID int, event models.SocketEvent)
	SendToConn(connID string, event models.SocketEvent) bool
	LeaveUser(roomID int, userID int)
}

// Presence resolves a user to their active connection.
type Presence interface {
	Lookup(userID int) (string, bool)
}

type dispatch struct {
	name    string
	deliver func()
}

// Router serializes event delivery through a single dispatch goroutine, so
// subscribers of a room observe events in the order the router accepted
// them. There is no ordering guarantee across rooms.
type Router struct {
	hub      Deliverer
	presence Presence
	logger   *zap.SugaredLogger
	events   chan dispatch
}

const queueSize = 1024

// NewRouter constructs a Router. Run must be called before events flow.
func NewRouter(hub Deliverer, presence Presence, logger *zap.SugaredLogger) *Router {
	return &Router{
		hub:      hub,
		presence: presence,
		logger:   logger,
		events:   make(chan dispatch, queueSize),
	}
}

// Run processes queued events until the context is cancelled.
func (r *Router) Run(ctx context.Context) {
	for {
		select {
		case ev := <-r.events:
			ev.deliver()
		case <-ctx.Done():
			return
		}
	}
}

// MessageCreated delivers a new private message to the receiver's
// connection, if the receiver is online.
func (r *Router) MessageCreated(msg models.Message) {
	r.enqueue(models.EventNewMessage, func() {
		event, err := models.NewSocketEvent(models.EventNewMessage, msg)
		if err != nil {
			r.logger.Errorw("marshal message event", "error", err)
			return
		}
		r.sendToUser(msg.ReceiverID, event)
	})
}

// GroupMessageCreated delivers a new group message to every room
// subscriber except the sender's own connections.
func (r *Router) GroupMessageCreated(msg models.GroupMessage) {
	r.enqueue(models.EventNewGroupMessage, func() {
		event, err := models.NewSocketEvent(models.EventNewGroupMessage, msg)
		if err != nil {
			r.logger.Errorw("marshal group message event", "error", err)
			return
		}
		r.hub.BroadcastRoom(msg.GroupID, msg.SenderID, event)
	})
}

// PrivateReactionAdded notifies both participants of a private message
// about a new reaction, deduplicated when both map to one connection.
func (r *Router) PrivateReactionAdded(reaction models.Reaction, reactorID, counterpartID int) {
	payload := models.ReactionAddedPayload{
		MessageID:   reaction.TargetID(),
		Reaction:    reaction,
		MessageType: models.MessageTypePrivate,
	}
	r.enqueue(models.EventReactionAdded, func() {
		r.sendToPair(models.EventReactionAdded, payload, reactorID, counterpartID)
	})
}

// GroupReactionAdded notifies every subscriber of the group's room.
func (r *Router) GroupReactionAdded(reaction models.Reaction, groupID int) {
	payload := models.ReactionAddedPayload{
		MessageID:   reaction.TargetID(),
		Reaction:    reaction,
		MessageType: models.MessageTypeGroup,
	}
	r.enqueue(models.EventReactionAdded, func() {
		r.broadcast(groupID, models.EventReactionAdded, payload)
	})
}

// PrivateReactionRemoved notifies both participants about a removed
// reaction.
func (r *Router) PrivateReactionRemoved(messageID, userID int, emoji string, reactorID, counterpartID int) {
	payload := models.ReactionRemovedPayload{
		MessageID:   messageID,
		UserID:      userID,
		Emoji:       emoji,
		MessageType: models.MessageTypePrivate,
	}
	r.enqueue(models.EventReactionRemoved, func() {
		r.sendToPair(models.EventReactionRemoved, payload, reactorID, counterpartID)
	})
}

// GroupReactionRemoved notifies every subscriber of the group's room.
func (r *Router) GroupReactionRemoved(messageID, userID int, emoji string, groupID int) {
	payload := models.ReactionRemovedPayload{
		MessageID:   messageID,
		UserID:      userID,
		Emoji:       emoji,
		MessageType: models.MessageTypeGroup,
	}
	r.enqueue(models.EventReactionRemoved, func() {
		r.broadcast(groupID, models.EventReactionRemoved, payload)
	})
}

// GroupUpdated notifies the group's room about a membership or profile
// change.
func (r *Router) GroupUpdated(group models.Group, action string) {
	payload := models.GroupUpdatedPayload{Group: group, Action: action}
	r.enqueue(models.EventGroupUpdated, func() {
		r.broadcast(group.ID, models.EventGroupUpdated, payload)
	})
}

// MemberRemoved handles the removal of a member: the removed user gets a
// direct notification first, then their connections are unsubscribed from
// the room, then the remaining subscribers get the membership update. The
// three steps run inside one dispatch so no other event interleaves.
func (r *Router) MemberRemoved(group models.Group, removedUserID int) {
	r.enqueue(models.EventRemovedFromGrp, func() {
		removed := models.RemovedFromGroupPayload{GroupID: group.ID, GroupName: group.Name}
		if event, err := models.NewSocketEvent(models.EventRemovedFromGrp, removed); err == nil {
			r.sendToUser(removedUserID, event)
		}

		r.hub.LeaveUser(group.ID, removedUserID)

		r.broadcast(group.ID, models.EventGroupUpdated, models.GroupUpdatedPayload{
			Group:  group,
			Action: models.GroupActionMemberRemoved,
		})
	})
}

// MessageRead notifies the group's room about a recorded read receipt.
func (r *Router) MessageRead(groupID int, payload models.MessageReadPayload) {
	r.enqueue(models.EventMessageRead, func() {
		r.broadcast(groupID, models.EventMessageRead, payload)
	})
}

func (r *Router) enqueue(name string, deliver func()) {
	observability.IncFanoutEvent(name)
	select {
	case r.events <- dispatch{name: name, deliver: deliver}:
	default:
		// queue saturated: drop, delivery was never guaranteed
		observability.IncFanoutDropped(name)
		r.logger.Warnw("fanout queue full, event dropped", "event", name)
	}
}

func (r *Router) broadcast(roomID int, name string, payload any) {
	event, err := models.NewSocketEvent(name, payload)
	if err != nil {
		r.logger.Errorw("marshal fanout event", "event", name, "error", err)
		return
	}
	r.hub.BroadcastRoom(roomID, 0, event)
}

func (r *Router) sendToUser(userID int, event models.SocketEvent) {
	connID, ok := r.presence.Lookup(userID)
	if !ok {
		return
	}
	if !r.hub.SendToConn(connID, event) {
		r.logger.Debugw("fanout push skipped", "event", event.Event, "user_id", userID)
	}
}

func (r *Router) sendToPair(name string, payload any, userA, userB int) {
	event, err := models.NewSocketEvent(name, payload)
	if err != nil {
		r.logger.Errorw("marshal fanout event", "event", name, "error", err)
		return
	}

	connA, okA := r.presence.Lookup(userA)
	connB, okB := r.presence.Lookup(userB)
	if okA {
		r.hub.SendToConn(connA, event)
	}
	if okB && (!okA || connB != connA) {
		r.hub.SendToConn(connB, event)
	}
}
