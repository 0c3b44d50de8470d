package session

import (
	"context"
	"sync"

	"drivecash/internal/client/transport"
	"drivecash/internal/domain/entity"
	"drivecash/pkg/errors"
	"drivecash/pkg/logger"
)

// ResolveCounter is the back-office collaborator that tracks how many
// conversations an operator has resolved. The chat core only bumps it.
type ResolveCounter interface {
	Increment(delta int)
}

// AdminSession is the operator view: one room directory plus, for whichever
// room is currently open, one full room session. The per-room components are
// the same ones a borrower uses, just scoped to the active room instead of
// the whole browsing session.
type AdminSession struct {
	api     RoomAPI
	tr      transport.Transport
	dir     *Directory
	counter ResolveCounter
	opts    Options

	mu     sync.Mutex
	active *RoomSession
}

func NewAdminSession(api RoomAPI, tr transport.Transport, counter ResolveCounter, opts Options) *AdminSession {
	return &AdminSession{
		api:     api,
		tr:      tr,
		dir:     NewDirectory(api),
		counter: counter,
		opts:    opts,
	}
}

// Directory returns the conversation list view.
func (a *AdminSession) Directory() *Directory {
	return a.dir
}

// Open switches the active room. Any previously open room is closed first,
// releasing its poll and push listener.
func (a *AdminSession) Open(ctx context.Context, roomID string) (*RoomSession, error) {
	conv, ok := a.dir.Find(roomID)
	if !ok {
		if err := a.dir.Refresh(ctx); err != nil {
			return nil, err
		}
		if conv, ok = a.dir.Find(roomID); !ok {
			return nil, errors.NotFound("Conversation", nil)
		}
	}

	a.mu.Lock()
	if a.active != nil {
		a.active.Close()
		a.active = nil
	}
	a.mu.Unlock()

	sess, err := Open(ctx, a.api, a.tr, conv, entity.DirectionAdmin, a.opts)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.active = sess
	a.mu.Unlock()
	return sess, nil
}

// Active returns the currently open room session, if any.
func (a *AdminSession) Active() *RoomSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// Resolve closes out the active conversation: the resolved counter is
// bumped, the server is asked to best-effort notify the borrower, and the
// room is closed locally. A failed dispatch never blocks or rolls back the
// local close.
func (a *AdminSession) Resolve(ctx context.Context) error {
	a.mu.Lock()
	active := a.active
	a.active = nil
	a.mu.Unlock()

	if active == nil {
		return nil
	}

	if a.counter != nil {
		a.counter.Increment(1)
	}

	if err := a.api.Resolve(ctx, active.roomID); err != nil {
		logger.Warn("AdminSession: resolve dispatch failed for room %s: %v", active.roomID, err)
	}

	active.Close()

	if err := a.dir.Refresh(ctx); err != nil {
		logger.Debug("AdminSession: directory refresh after resolve failed: %v", err)
	}
	return nil
}

// Close releases the active room, if any.
func (a *AdminSession) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active != nil {
		a.active.Close()
		a.active = nil
	}
}
