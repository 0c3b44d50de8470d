package entity

import (
	"strings"
	"time"
)

// Message direction: which side of the conversation authored it.
const (
	DirectionUser  = "user"
	DirectionAdmin = "admin"
)

// Delivery status progression. Transitions only move forward.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// TempIDPrefix marks locally-generated echo identifiers. Server-assigned IDs
// are plain UUIDs, so a prefixed ID can never collide with a persisted one.
const TempIDPrefix = "local-"

type Message struct {
	ID             string    `json:"id" firestore:"id"`
	ConversationID string    `json:"conversation_id" firestore:"conversationId"`
	Text           string    `json:"text" firestore:"text"`
	Direction      string    `json:"direction" firestore:"direction"`
	Status         string    `json:"status" firestore:"status"`
	AttachmentURL  string    `json:"attachment_url,omitempty" firestore:"attachmentUrl,omitempty"`
	AttachmentName string    `json:"attachment_name,omitempty" firestore:"attachmentName,omitempty"`
	CreatedAt      time.Time `json:"created_at" firestore:"createdAt"`
}

// IsLocalEcho reports whether the message still carries a temporary client
// identifier, i.e. it was sent optimistically and not yet server-confirmed.
func (m *Message) IsLocalEcho() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// Preview is the short line shown in room lists and push notifications.
func (m *Message) Preview() string {
	if m.Text != "" {
		return m.Text
	}
	if m.AttachmentName != "" {
		return m.AttachmentName
	}
	return "Attachment"
}

// StatusRank orders delivery states for forward-only transition checks.
// Unknown states rank below "sent" so they never overwrite a known state.
func StatusRank(status string) int {
	switch status {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	default:
		return 0
	}
}
