package session

import (
	"context"
	"sync"

	"drivecash/internal/domain/entity"
)

// RoomAPI is the REST surface the sync core depends on, satisfied by
// chatapi.Client.
type RoomAPI interface {
	ListRooms(ctx context.Context) ([]*entity.Conversation, error)
	MyRoom(ctx context.Context) (*entity.Conversation, error)
	Messages(ctx context.Context, roomID string) ([]*entity.Message, error)
	Send(ctx context.Context, roomID, text, attachmentURL, attachmentName string) (*entity.Message, error)
	MarkRead(ctx context.Context, roomID string) error
	Resolve(ctx context.Context, roomID string) error
}

// Directory is the conversation list view. It is refreshed in full after any
// mutating action (send, mark-read, resolve) rather than patched
// incrementally: the list is low-frequency compared to message traffic, and
// a full re-fetch always reflects server truth.
type Directory struct {
	api RoomAPI

	mu    sync.Mutex
	rooms []*entity.Conversation
}

func NewDirectory(api RoomAPI) *Directory {
	return &Directory{api: api}
}

// Refresh re-fetches the full conversation list.
func (d *Directory) Refresh(ctx context.Context) error {
	rooms, err := d.api.ListRooms(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.rooms = rooms
	d.mu.Unlock()
	return nil
}

// Rooms returns the last fetched list.
func (d *Directory) Rooms() []entity.Conversation {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]entity.Conversation, len(d.rooms))
	for i, r := range d.rooms {
		out[i] = *r
	}
	return out
}

// Find returns the cached conversation with the given id.
func (d *Directory) Find(id string) (*entity.Conversation, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, r := range d.rooms {
		if r.ID == id {
			cp := *r
			return &cp, true
		}
	}
	return nil, false
}
