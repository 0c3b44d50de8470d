package websocket

import "drivecash/internal/domain/entity"

// Push channel frame types. The channel carries two event shapes toward
// clients: a whole message and a status transition for one message.
// Presence frames announce borrower online/offline to operators.
const (
	FrameTypeMessage  = "message"
	FrameTypeStatus   = "status"
	FrameTypePresence = "presence"
	FrameTypePing     = "ping"
	FrameTypePong     = "pong"
)

// Frame is the wire shape exchanged over the push channel.
type Frame struct {
	Type           string          `json:"type"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Message        *entity.Message `json:"message,omitempty"`
	MessageID      string          `json:"message_id,omitempty"`
	Status         string          `json:"status,omitempty"`
	Online         *bool           `json:"online,omitempty"`
}

// MessageFrame builds a new-message frame.
func MessageFrame(msg *entity.Message) Frame {
	return Frame{
		Type:           FrameTypeMessage,
		ConversationID: msg.ConversationID,
		Message:        msg,
	}
}

// StatusFrame builds a status-transition frame.
func StatusFrame(conversationID, messageID, status string) Frame {
	return Frame{
		Type:           FrameTypeStatus,
		ConversationID: conversationID,
		MessageID:      messageID,
		Status:         status,
	}
}
