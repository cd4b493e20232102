package models

import (
	"strings"
	"time"
)

// Message kinds stored in the message_type column.
const (
	MessageKindText   = "text"
	MessageKindImage  = "image"
	MessageKindFile   = "file"
	MessageKindVideo  = "video"
	MessageKindSystem = "system"
)

// MaxTextLength bounds the text body of any message.
const MaxTextLength = 2000

// Attachment describes an already-uploaded media object referenced by a
// message. Uploading itself is owned by the media collaborator; only the
// resulting URL and metadata are stored here.
type Attachment struct {
	URL      string `json:"url"`
	Name     string `json:"name,omitempty"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// Message is a private message between two users. Immutable after creation;
// reactions live in their own side table.
type Message struct {
	ID          int         `db:"id" json:"id"`
	SenderID    int         `db:"sender_id" json:"sender_id"`
	ReceiverID  int         `db:"receiver_id" json:"receiver_id"`
	Text        string      `db:"text" json:"text,omitempty"`
	MessageType string      `db:"message_type" json:"message_type"`
	Attachment  *Attachment `db:"-" json:"attachment,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// KindForAttachment derives the stored message kind from an optional
// attachment. Text-only messages are "text".
func KindForAttachment(att *Attachment) string {
	if att == nil {
		return MessageKindText
	}
	switch {
	case strings.HasPrefix(att.MimeType, "image/"):
		return MessageKindImage
	case strings.HasPrefix(att.MimeType, "video/"):
		return MessageKindVideo
	default:
		return MessageKindFile
	}
}
