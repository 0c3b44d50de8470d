package session

import (
	"drivecash/internal/domain/entity"
	"drivecash/pkg/logger"
)

// Notification is what the sink raises for an inbound message.
type Notification struct {
	ConversationID string
	Title          string
	Body           string
}

// Beeper plays the audible cue.
type Beeper interface {
	Beep()
}

// DesktopNotifier raises an out-of-tab notification (Web Push, OS toast).
type DesktopNotifier interface {
	Notify(n Notification) error
}

// Badge tracks the per-room unread badge.
type Badge interface {
	Increment(conversationID string)
}

// FocusState reports whether the conversation surface currently has the
// user's attention.
type FocusState interface {
	Focused() bool
}

// Sink decides, per message accepted by the store, whether to play the cue,
// raise a desktop notification and bump the unread badge. It is driven only
// from the store's deduplicated output, never from raw transport events, so
// each logical message reaches it exactly once no matter how many transports
// reported it. Every dispatch failure is swallowed: notifications are
// best-effort and never block message delivery.
type Sink struct {
	selfDirection string
	beeper        Beeper
	desktop       DesktopNotifier
	badge         Badge
	focus         FocusState
}

func NewSink(selfDirection string, beeper Beeper, desktop DesktopNotifier, badge Badge, focus FocusState) *Sink {
	return &Sink{
		selfDirection: selfDirection,
		beeper:        beeper,
		desktop:       desktop,
		badge:         badge,
		focus:         focus,
	}
}

// Observe handles one accepted message. Self-authored messages never notify.
// The desktop notification is raised only while the surface is unfocused;
// the cue and the badge fire regardless.
func (s *Sink) Observe(msg *entity.Message) {
	if msg == nil || msg.Direction == s.selfDirection {
		return
	}

	if s.beeper != nil {
		s.beeper.Beep()
	}

	if s.badge != nil {
		s.badge.Increment(msg.ConversationID)
	}

	if s.desktop != nil && (s.focus == nil || !s.focus.Focused()) {
		n := Notification{
			ConversationID: msg.ConversationID,
			Title:          "Support Reply",
			Body:           msg.Text,
		}
		if err := s.desktop.Notify(n); err != nil {
			logger.Debug("Sink: desktop notification failed for room %s: %v", msg.ConversationID, err)
		}
	}
}
