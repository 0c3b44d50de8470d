package session

import (
	"context"
	"time"

	"drivecash/internal/client/transport"
	"drivecash/internal/domain/entity"
	"drivecash/pkg/logger"
)

const defaultPollInterval = 2 * time.Second

// Options tunes a room session. The zero value is usable.
type Options struct {
	// PollInterval is the periodic re-fetch cadence, the fallback path when
	// push is unavailable. Defaults to two seconds.
	PollInterval time.Duration

	// Sink receives every message the store accepts. Optional.
	Sink *Sink
}

// RoomSession owns everything scoped to one open room: the store, the push
// subscription and the periodic poll. Its lifecycle is explicit; Close stops
// the poll and unregisters the push listener, which is what keeps stale
// timers and duplicate listeners from ever existing.
type RoomSession struct {
	store       *Store
	api         RoomAPI
	tr          transport.Transport
	roomID      string
	unsubscribe func()
	cancel      context.CancelFunc
}

// Open loads the room in full, marks it read if it had unread messages,
// subscribes to push events for it and starts the fallback poll. ctx bounds
// the session's background work; cancelling it is equivalent to Close.
func Open(ctx context.Context, api RoomAPI, tr transport.Transport, conv *entity.Conversation, selfDirection string, opts Options) (*RoomSession, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}

	store := NewStore(conv, selfDirection, api)
	if opts.Sink != nil {
		store.OnAccept(opts.Sink.Observe)
	}

	if err := store.LoadRoom(ctx); err != nil {
		return nil, err
	}

	s := &RoomSession{
		store:  store,
		api:    api,
		tr:     tr,
		roomID: conv.ID,
	}

	// Mark-as-read happens once per open, as a batch, not once per message.
	if conv.UnreadFor(selfDirection) > 0 {
		if err := s.MarkRead(ctx); err != nil {
			logger.Warn("Session: mark-as-read failed for room %s: %v", s.roomID, err)
		}
	}

	s.unsubscribe = tr.OnMessage(func(ev transport.Event) {
		if ev.ConversationID != s.roomID {
			return
		}
		if ev.IsStatus() {
			store.ApplyStatus(ev.MessageID, ev.Status)
		} else {
			store.AppendIncoming(ev.Message)
		}
	})

	pollCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	startPoller(pollCtx, opts.PollInterval, s.poll)

	return s, nil
}

// OpenMyRoom opens the borrower's own room, creating it lazily server-side.
func OpenMyRoom(ctx context.Context, api RoomAPI, tr transport.Transport, opts Options) (*RoomSession, error) {
	conv, err := api.MyRoom(ctx)
	if err != nil {
		return nil, err
	}
	return Open(ctx, api, tr, conv, entity.DirectionUser, opts)
}

// poll re-fetches the room and offers every message to the store. Dedup
// makes re-offers of known messages no-ops, so polling alongside push never
// duplicates anything. A failed poll is logged and retried next tick.
func (s *RoomSession) poll(ctx context.Context) {
	msgs, err := s.api.Messages(ctx, s.roomID)
	if err != nil {
		if ctx.Err() == nil {
			logger.Debug("Session: poll failed for room %s: %v", s.roomID, err)
		}
		return
	}
	for _, m := range msgs {
		s.store.AppendIncoming(m)
	}
}

// Send optimistically inserts a local echo, submits the message, and offers
// the server-confirmed copy back to the store where it reconciles the echo.
// On failure the echo stays visible, distinguishably unconfirmed, and the
// error is returned so the caller can surface a retry affordance.
func (s *RoomSession) Send(ctx context.Context, text, attachmentURL, attachmentName string) (entity.Message, error) {
	echo := s.store.AppendOutgoing(text, attachmentURL, attachmentName)

	confirmed, err := s.api.Send(ctx, s.roomID, text, attachmentURL, attachmentName)
	if err != nil {
		return echo, err
	}

	s.store.AppendIncoming(confirmed)

	// Cross-tab echo over the push channel, best-effort: persistence already
	// happened over REST.
	s.tr.Send(s.roomID, transport.Event{ConversationID: s.roomID, Message: confirmed})

	return *confirmed, nil
}

// MarkRead submits one batch mark-as-read for the room and applies it
// locally. Safe to call repeatedly; with no new arrivals it stays a no-op.
func (s *RoomSession) MarkRead(ctx context.Context) error {
	err := s.api.MarkRead(ctx, s.roomID)
	s.store.MarkReadLocal()
	return err
}

// Messages returns the current merged view.
func (s *RoomSession) Messages() []entity.Message {
	return s.store.Messages()
}

// Conversation returns the current room summary.
func (s *RoomSession) Conversation() entity.Conversation {
	return s.store.Conversation()
}

// Store exposes the underlying store for observers.
func (s *RoomSession) Store() *Store {
	return s.store
}

// Close stops the periodic poll and unregisters the push listener. It is
// idempotent.
func (s *RoomSession) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}
