package entity

import "time"

// Conversation is the chat thread between one borrower and the support team.
// It is created lazily the first time the borrower opens their chat surface
// and is never deleted by clients.
type Conversation struct {
	ID               string    `json:"id" firestore:"id"`
	UserID           string    `json:"user_id" firestore:"userId"`
	UserLabel        string    `json:"user_label" firestore:"userLabel"`
	LastMessage      string    `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageAt    time.Time `json:"last_message_at" firestore:"lastMessageAt"`
	UserUnreadCount  int       `json:"user_unread_count" firestore:"userUnreadCount"`
	AdminUnreadCount int       `json:"admin_unread_count" firestore:"adminUnreadCount"`
	Online           bool      `json:"online" firestore:"online"`
	IsActive         bool      `json:"is_active" firestore:"isActive"`
	CreatedAt        time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt        time.Time `json:"updated_at" firestore:"updatedAt"`
}

// UnreadFor returns the unread count for one side of the conversation.
func (c *Conversation) UnreadFor(direction string) int {
	if direction == DirectionAdmin {
		return c.AdminUnreadCount
	}
	return c.UserUnreadCount
}
