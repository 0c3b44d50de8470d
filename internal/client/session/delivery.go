package session

import (
	"drivecash/internal/domain/entity"
	"drivecash/pkg/logger"
)

// Delivery state machine: sent → delivered → read, forward only. Transitions
// are applied on the store because the store is the single serialization
// point for all per-room state.

// ApplyStatus applies an inbound status event to one message. A transition
// that would move backwards is ignored, and an event for an identifier the
// store has not loaded yet is dropped rather than treated as an error.
// Returns whether the message's status changed.
func (s *Store) ApplyStatus(messageID, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byID[messageID]
	if !ok {
		logger.Debug("Store: dropping status %q for unknown message %s in room %s", status, messageID, s.conversationID)
		return false
	}

	if entity.StatusRank(status) <= entity.StatusRank(m.Status) {
		return false
	}
	m.Status = status
	return true
}

// MarkReadLocal applies "read" to every currently-unread inbound message as
// one batch and resets the viewer-side unread count. It pairs with a single
// mark-as-read call to the server per room open. Calling it again with no
// new arrivals is a no-op: the count stays at zero, never negative. Returns
// the number of messages transitioned.
func (s *Store) MarkReadLocal() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, m := range s.messages {
		if m.Direction != s.selfDirection && entity.StatusRank(m.Status) < entity.StatusRank(entity.StatusRead) {
			m.Status = entity.StatusRead
			count++
		}
	}

	if s.conv != nil {
		if s.selfDirection == entity.DirectionAdmin {
			s.conv.AdminUnreadCount = 0
		} else {
			s.conv.UserUnreadCount = 0
		}
	}
	return count
}
