package handlers

import "messenger-service/internal/models"

// EventRouter is the fan-out surface handlers notify after a successful
// write. Notification is asynchronous and never part of the write's
// success contract.
type EventRouter interface {
	MessageCreated(msg models.Message)
	GroupMessageCreated(msg models.GroupMessage)
	PrivateReactionAdded(reaction models.Reaction, reactorID, counterpartID int)
	GroupReactionAdded(reaction models.Reaction, groupID int)
	PrivateReactionRemoved(messageID, userID int, emoji string, reactorID, counterpartID int)
	GroupReactionRemoved(messageID, userID int, emoji string, groupID int)
	GroupUpdated(group models.Group, action string)
	MemberRemoved(group models.Group, removedUserID int)
	MessageRead(groupID int, payload models.MessageReadPayload)
}
