package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivecash/internal/client/transport"
	"drivecash/internal/domain/entity"
	"drivecash/pkg/errors"
)

// fakeRoomAPI is an in-memory server double for the REST surface.
type fakeRoomAPI struct {
	mu sync.Mutex

	rooms    []*entity.Conversation
	messages map[string][]*entity.Message
	nextID   int

	markReadCalls int
	resolveCalls  int
	sendErr       error
	resolveErr    error
}

func newFakeRoomAPI(rooms ...*entity.Conversation) *fakeRoomAPI {
	return &fakeRoomAPI{
		rooms:    rooms,
		messages: make(map[string][]*entity.Message),
	}
}

func (f *fakeRoomAPI) ListRooms(ctx context.Context) ([]*entity.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.Conversation, len(f.rooms))
	copy(out, f.rooms)
	return out, nil
}

func (f *fakeRoomAPI) MyRoom(ctx context.Context) (*entity.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.rooms) == 0 {
		f.rooms = append(f.rooms, &entity.Conversation{ID: "room-1", UserID: "user-1", IsActive: true})
	}
	return f.rooms[0], nil
}

func (f *fakeRoomAPI) Messages(ctx context.Context, roomID string) ([]*entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.Message, len(f.messages[roomID]))
	copy(out, f.messages[roomID])
	return out, nil
}

func (f *fakeRoomAPI) Send(ctx context.Context, roomID, text, attachmentURL, attachmentName string) (*entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.nextID++
	msg := &entity.Message{
		ID:             fmt.Sprintf("srv-%d", f.nextID),
		ConversationID: roomID,
		Text:           text,
		Direction:      entity.DirectionUser,
		Status:         entity.StatusSent,
		AttachmentURL:  attachmentURL,
		AttachmentName: attachmentName,
		CreatedAt:      time.Now(),
	}
	f.messages[roomID] = append(f.messages[roomID], msg)
	return msg, nil
}

func (f *fakeRoomAPI) MarkRead(ctx context.Context, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReadCalls++
	return nil
}

func (f *fakeRoomAPI) Resolve(ctx context.Context, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveCalls++
	return f.resolveErr
}

func (f *fakeRoomAPI) addMessage(roomID string, msg *entity.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[roomID] = append(f.messages[roomID], msg)
}

func (f *fakeRoomAPI) calls() (markRead, resolve int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markReadCalls, f.resolveCalls
}

func TestOpenMarksUnreadRoomReadOnce(t *testing.T) {
	conv := &entity.Conversation{ID: "room-1", UserID: "user-1", UserUnreadCount: 2, IsActive: true}
	api := newFakeRoomAPI(conv)
	api.addMessage("room-1", msgAt("in-1", "hi", entity.DirectionAdmin, time.Now()))

	sess, err := Open(context.Background(), api, transport.NewInert(), conv, entity.DirectionUser, Options{})
	require.NoError(t, err)
	defer sess.Close()

	markRead, _ := api.calls()
	assert.Equal(t, 1, markRead)
	assert.Equal(t, 0, sess.Conversation().UserUnreadCount)
}

func TestOpenSkipsMarkReadWhenNothingUnread(t *testing.T) {
	conv := &entity.Conversation{ID: "room-1", UserID: "user-1", IsActive: true}
	api := newFakeRoomAPI(conv)

	sess, err := Open(context.Background(), api, transport.NewInert(), conv, entity.DirectionUser, Options{})
	require.NoError(t, err)
	defer sess.Close()

	markRead, _ := api.calls()
	assert.Equal(t, 0, markRead)
}

func TestSendReconcilesEcho(t *testing.T) {
	conv := &entity.Conversation{ID: "room-1", UserID: "user-1", IsActive: true}
	api := newFakeRoomAPI(conv)

	sess, err := Open(context.Background(), api, transport.NewInert(), conv, entity.DirectionUser, Options{})
	require.NoError(t, err)
	defer sess.Close()

	msg, err := sess.Send(context.Background(), "hello", "", "")
	require.NoError(t, err)
	assert.False(t, msg.IsLocalEcho())

	msgs := sess.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, msg.ID, msgs[0].ID)
}

func TestSendFailureKeepsEchoVisible(t *testing.T) {
	conv := &entity.Conversation{ID: "room-1", UserID: "user-1", IsActive: true}
	api := newFakeRoomAPI(conv)
	api.sendErr = errors.Unavailable("server unreachable", nil)

	sess, err := Open(context.Background(), api, transport.NewInert(), conv, entity.DirectionUser, Options{})
	require.NoError(t, err)
	defer sess.Close()

	echo, err := sess.Send(context.Background(), "hello", "", "")
	require.Error(t, err)
	assert.True(t, echo.IsLocalEcho())

	msgs := sess.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, echo.ID, msgs[0].ID)
}

func TestPollPicksUpNewMessages(t *testing.T) {
	conv := &entity.Conversation{ID: "room-1", UserID: "user-1", IsActive: true}
	api := newFakeRoomAPI(conv)

	sess, err := Open(context.Background(), api, transport.NewInert(), conv, entity.DirectionUser, Options{
		PollInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	defer sess.Close()

	api.addMessage("room-1", msgAt("in-1", "arrived late", entity.DirectionAdmin, time.Now()))

	assert.Eventually(t, func() bool {
		return len(sess.Messages()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestPollDoesNotDuplicateKnownMessages(t *testing.T) {
	conv := &entity.Conversation{ID: "room-1", UserID: "user-1", IsActive: true}
	api := newFakeRoomAPI(conv)
	api.addMessage("room-1", msgAt("in-1", "hi", entity.DirectionAdmin, time.Now()))

	sess, err := Open(context.Background(), api, transport.NewInert(), conv, entity.DirectionUser, Options{
		PollInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	defer sess.Close()

	// Let several poll cycles run over the same server state.
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, sess.Messages(), 1)
}

func TestCloseIsIdempotent(t *testing.T) {
	conv := &entity.Conversation{ID: "room-1", UserID: "user-1", IsActive: true}
	api := newFakeRoomAPI(conv)

	sess, err := Open(context.Background(), api, transport.NewInert(), conv, entity.DirectionUser, Options{})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		sess.Close()
		sess.Close()
	})
}

func TestOpenMyRoomCreatesLazily(t *testing.T) {
	api := newFakeRoomAPI()

	sess, err := OpenMyRoom(context.Background(), api, transport.NewInert(), Options{})
	require.NoError(t, err)
	defer sess.Close()

	assert.Equal(t, "room-1", sess.Conversation().ID)
}
