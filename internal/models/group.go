package models

import "time"

// Member roles. Exactly one admin exists per group at any time.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Group is a chat group with an embedded member list.
type Group struct {
	ID          int           `db:"id" json:"id"`
	Name        string        `db:"name" json:"name"`
	Description string        `db:"description" json:"description,omitempty"`
	ProfilePic  string        `db:"profile_pic" json:"profile_pic,omitempty"`
	AdminID     int           `db:"admin_id" json:"admin_id"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	Members     []GroupMember `db:"-" json:"members,omitempty"`
}

// GroupMember is one (group, user, role) membership record.
type GroupMember struct {
	GroupID int    `db:"group_id" json:"group_id"`
	UserID  int    `db:"user_id" json:"user_id"`
	Role    string `db:"role" json:"role"`
}

// GroupMessage is a message sent in a group. System messages record group
// lifecycle changes and reuse the text column for their body.
type GroupMessage struct {
	ID          int           `db:"id" json:"id"`
	GroupID     int           `db:"group_id" json:"group_id"`
	SenderID    int           `db:"sender_id" json:"sender_id"`
	Text        string        `db:"text" json:"text,omitempty"`
	MessageType string        `db:"message_type" json:"message_type"`
	Attachment  *Attachment   `db:"-" json:"attachment,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	ReadBy      []ReadReceipt `db:"-" json:"read_by,omitempty"`
}

// ReadReceipt marks a group message as read by one user. The set of
// receipts for a message only ever grows.
type ReadReceipt struct {
	MessageID int       `db:"message_id" json:"message_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	ReadAt    time.Time `db:"read_at" json:"read_at"`
}
