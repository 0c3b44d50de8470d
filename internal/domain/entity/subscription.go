package entity

import "time"

// PushSubscription is an opaque Web Push registration tied to one
// conversation. It only serves out-of-tab notification delivery; losing or
// lacking one never affects message correctness.
type PushSubscription struct {
	ID             string    `json:"id" firestore:"id"`
	ConversationID string    `json:"conversation_id" firestore:"conversationId"`
	UserID         string    `json:"user_id" firestore:"userId"`
	Endpoint       string    `json:"endpoint" firestore:"endpoint"`
	P256dhKey      string    `json:"p256dh_key" firestore:"p256dhKey"`
	AuthKey        string    `json:"auth_key" firestore:"authKey"`
	CreatedAt      time.Time `json:"created_at" firestore:"createdAt"`
}

// SupportStats tracks operator-scoped counters. The resolved counter is the
// only field the chat core touches; the rest belongs to the back office.
type SupportStats struct {
	OperatorID    string    `json:"operator_id" firestore:"operatorId"`
	ResolvedCount int64     `json:"resolved_count" firestore:"resolvedCount"`
	UpdatedAt     time.Time `json:"updated_at" firestore:"updatedAt"`
}
