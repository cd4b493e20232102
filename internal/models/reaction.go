package models

import "time"

// Reaction target kinds; they determine which foreign key is populated.
const (
	MessageTypePrivate = "private"
	MessageTypeGroup   = "group"
)

// MaxEmojiLength bounds the emoji string of a reaction.
const MaxEmojiLength = 10

// Reaction is a (message, user, emoji) annotation. The pair of nullable
// foreign keys mirrors the target kind: exactly one of MessageID or
// GroupMessageID is set.
type Reaction struct {
	ID             int       `db:"id" json:"id"`
	MessageID      *int      `db:"message_id" json:"message_id,omitempty"`
	GroupMessageID *int      `db:"group_message_id" json:"group_message_id,omitempty"`
	UserID         int       `db:"user_id" json:"user_id"`
	Emoji          string    `db:"emoji" json:"emoji"`
	MessageType    string    `db:"message_type" json:"message_type"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// TargetID returns the id of the message the reaction is attached to,
// regardless of kind.
func (r Reaction) TargetID() int {
	if r.MessageType == MessageTypeGroup && r.GroupMessageID != nil {
		return *r.GroupMessageID
	}
	if r.MessageID != nil {
		return *r.MessageID
	}
	return 0
}

// ReactionMap groups reactions by emoji, listing the reacting user ids.
// This is the shape clients render and mutate locally.
type ReactionMap map[string][]int

// BuildReactionMap folds a reaction list into an emoji-keyed map.
func BuildReactionMap(reactions []Reaction) ReactionMap {
	m := make(ReactionMap, len(reactions))
	for _, r := range reactions {
		m[r.Emoji] = append(m[r.Emoji], r.UserID)
	}
	return m
}
