// Package session holds the client-side synchronization core for one open
// support-chat room: the message store that merges push and poll traffic, the
// delivery state machine, the notification sink and the room/admin session
// lifecycles that tie them together.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"drivecash/internal/domain/entity"
	"drivecash/pkg/logger"
)

// maxPendingEchoes bounds the reconciliation window. An echo older than this
// many unconfirmed sends stays visible but is no longer matched.
const maxPendingEchoes = 32

// Fetcher is the slice of the REST client the store needs for full fetches.
type Fetcher interface {
	Messages(ctx context.Context, roomID string) ([]*entity.Message, error)
}

// Store owns the ordered message list for one open room. Every producer
// (push events, periodic polls, local echoes) routes through it, making it
// the single serialization point: the merged sequence is sorted ascending by
// creation time with ties broken by arrival order, contains each server
// identifier exactly once, and reconciles optimistic local echoes against
// their server-confirmed copies.
type Store struct {
	mu sync.Mutex

	conversationID string
	selfDirection  string
	fetcher        Fetcher

	conv     *entity.Conversation
	messages []*entity.Message
	byID     map[string]*entity.Message
	pending  []*entity.Message

	observers []func(*entity.Message)
}

func NewStore(conv *entity.Conversation, selfDirection string, fetcher Fetcher) *Store {
	return &Store{
		conversationID: conv.ID,
		selfDirection:  selfDirection,
		fetcher:        fetcher,
		conv:           conv,
		byID:           make(map[string]*entity.Message),
	}
}

// OnAccept registers an observer invoked once for every message the store
// accepts through AppendIncoming, after dedup. Because the store is the sole
// arbiter, observers inherit exactly-once semantics regardless of how many
// transports reported the message.
func (s *Store) OnAccept(fn func(*entity.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// LoadRoom performs a full ordered fetch and replaces the room's current
// view. Unconfirmed local echoes survive the replacement (reconciled against
// the fetched copies where possible) so a failed send is never silently
// dropped. Observers are not notified; a load is a view reset, not traffic.
func (s *Store) LoadRoom(ctx context.Context) error {
	fetched, err := s.fetcher.Messages(ctx, s.conversationID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.pending
	s.messages = nil
	s.pending = nil
	s.byID = make(map[string]*entity.Message)

	for _, m := range fetched {
		if m == nil || m.ID == "" {
			continue
		}
		if _, ok := s.byID[m.ID]; ok {
			continue
		}
		cp := *m
		if i := matchEcho(pending, &cp); i >= 0 {
			pending = append(pending[:i], pending[i+1:]...)
		}
		s.insertOrdered(&cp)
	}

	// Whatever echoes the fetch did not confirm stay visible, still marked
	// unconfirmed, so the user can retry.
	for _, echo := range pending {
		s.insertOrdered(echo)
		s.pending = append(s.pending, echo)
	}

	s.refreshSummaryLocked()
	return nil
}

// AppendIncoming offers a server-confirmed message to the store. It is
// idempotent: a message whose identifier is already present leaves state and
// order unchanged. A message matching the earliest pending local echo (same
// direction, same text) reconciles that echo instead of duplicating it; an
// unmatched confirmation is simply inserted, favoring showing the message
// over losing it. Returns whether the message was accepted.
func (s *Store) AppendIncoming(msg *entity.Message) bool {
	if msg == nil || msg.ID == "" || msg.IsLocalEcho() {
		return false
	}

	s.mu.Lock()
	if _, ok := s.byID[msg.ID]; ok {
		s.mu.Unlock()
		return false
	}

	cp := *msg
	if i := matchEcho(s.pending, &cp); i >= 0 {
		echo := s.pending[i]
		s.pending = append(s.pending[:i], s.pending[i+1:]...)
		s.removeLocked(echo.ID)
		logger.Debug("Store: reconciled echo %s with message %s in room %s", echo.ID, cp.ID, s.conversationID)
	}
	s.insertOrdered(&cp)

	if s.conv != nil {
		if !cp.CreatedAt.Before(s.conv.LastMessageAt) {
			s.conv.LastMessage = cp.Preview()
			s.conv.LastMessageAt = cp.CreatedAt
		}
		if cp.Direction != s.selfDirection && cp.Status != entity.StatusRead {
			s.bumpUnreadLocked(1)
		}
	}

	observers := s.observers
	s.mu.Unlock()

	for _, fn := range observers {
		fn(&cp)
	}
	return true
}

// AppendOutgoing inserts an optimistic local echo for a message the local
// participant just sent: temporary identifier, status "sent", appended at the
// current end of order. The echo is reconciled away once the server-confirmed
// copy arrives via AppendIncoming.
func (s *Store) AppendOutgoing(text, attachmentURL, attachmentName string) entity.Message {
	echo := &entity.Message{
		ID:             entity.TempIDPrefix + uuid.New().String(),
		ConversationID: s.conversationID,
		Text:           text,
		Direction:      s.selfDirection,
		Status:         entity.StatusSent,
		AttachmentURL:  attachmentURL,
		AttachmentName: attachmentName,
		CreatedAt:      time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, echo)
	s.byID[echo.ID] = echo
	s.pending = append(s.pending, echo)
	if len(s.pending) > maxPendingEchoes {
		s.pending = s.pending[1:]
	}

	if s.conv != nil {
		s.conv.LastMessage = echo.Preview()
		s.conv.LastMessageAt = echo.CreatedAt
	}
	return *echo
}

// Messages returns a snapshot of the merged, ordered list.
func (s *Store) Messages() []entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entity.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = *m
	}
	return out
}

// Conversation returns a snapshot of the room summary.
func (s *Store) Conversation() entity.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conv == nil {
		return entity.Conversation{ID: s.conversationID}
	}
	return *s.conv
}

// matchEcho returns the index of the earliest pending echo the confirmed
// message reconciles against: same direction and equal text,
// first-in-first-confirmed.
func matchEcho(pending []*entity.Message, msg *entity.Message) int {
	for i, echo := range pending {
		if echo.Direction == msg.Direction && echo.Text == msg.Text {
			return i
		}
	}
	return -1
}

// insertOrdered places msg after the last element whose creation time is not
// later than its own, keeping the sequence sorted by createdAt with stable
// arrival-order ties. Caller holds the lock.
func (s *Store) insertOrdered(msg *entity.Message) {
	i := sort.Search(len(s.messages), func(i int) bool {
		return s.messages[i].CreatedAt.After(msg.CreatedAt)
	})
	s.messages = append(s.messages, nil)
	copy(s.messages[i+1:], s.messages[i:])
	s.messages[i] = msg
	s.byID[msg.ID] = msg
}

func (s *Store) removeLocked(id string) {
	delete(s.byID, id)
	for i, m := range s.messages {
		if m.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}

func (s *Store) bumpUnreadLocked(delta int) {
	if s.selfDirection == entity.DirectionAdmin {
		s.conv.AdminUnreadCount += delta
	} else {
		s.conv.UserUnreadCount += delta
	}
}

// refreshSummaryLocked recomputes the preview and the viewer-side unread
// count from the merged list, used after a full view replacement.
func (s *Store) refreshSummaryLocked() {
	if s.conv == nil {
		return
	}

	unread := 0
	for _, m := range s.messages {
		if m.Direction != s.selfDirection && m.Status != entity.StatusRead {
			unread++
		}
	}
	if s.selfDirection == entity.DirectionAdmin {
		s.conv.AdminUnreadCount = unread
	} else {
		s.conv.UserUnreadCount = unread
	}

	if n := len(s.messages); n > 0 {
		last := s.messages[n-1]
		s.conv.LastMessage = last.Preview()
		s.conv.LastMessageAt = last.CreatedAt
	}
}
