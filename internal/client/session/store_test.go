package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivecash/internal/domain/entity"
)

type fakeFetcher struct {
	messages []*entity.Message
	err      error
}

func (f *fakeFetcher) Messages(ctx context.Context, roomID string) ([]*entity.Message, error) {
	return f.messages, f.err
}

func newTestConv() *entity.Conversation {
	return &entity.Conversation{ID: "room-1", UserID: "user-1", IsActive: true}
}

func msgAt(id, text, direction string, at time.Time) *entity.Message {
	return &entity.Message{
		ID:             id,
		ConversationID: "room-1",
		Text:           text,
		Direction:      direction,
		Status:         entity.StatusSent,
		CreatedAt:      at,
	}
}

func TestAppendIncomingDeduplicatesByID(t *testing.T) {
	store := NewStore(newTestConv(), entity.DirectionUser, &fakeFetcher{})
	now := time.Now()

	msg := msgAt("id-1", "hello", entity.DirectionAdmin, now)
	assert.True(t, store.AppendIncoming(msg))

	// Same identifier with a stale status must leave state untouched.
	store.ApplyStatus("id-1", entity.StatusDelivered)
	stale := msgAt("id-1", "hello", entity.DirectionAdmin, now)
	assert.False(t, store.AppendIncoming(stale))

	msgs := store.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, entity.StatusDelivered, msgs[0].Status)
}

func TestAppendIncomingKeepsAscendingOrder(t *testing.T) {
	store := NewStore(newTestConv(), entity.DirectionUser, &fakeFetcher{})
	base := time.Now()

	store.AppendIncoming(msgAt("id-2", "second", entity.DirectionAdmin, base.Add(2*time.Second)))
	store.AppendIncoming(msgAt("id-1", "first", entity.DirectionAdmin, base.Add(1*time.Second)))
	store.AppendIncoming(msgAt("id-3", "third", entity.DirectionAdmin, base.Add(3*time.Second)))

	msgs := store.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "id-1", msgs[0].ID)
	assert.Equal(t, "id-2", msgs[1].ID)
	assert.Equal(t, "id-3", msgs[2].ID)
}

func TestAppendIncomingTiesKeepArrivalOrder(t *testing.T) {
	store := NewStore(newTestConv(), entity.DirectionUser, &fakeFetcher{})
	at := time.Now()

	store.AppendIncoming(msgAt("id-a", "a", entity.DirectionAdmin, at))
	store.AppendIncoming(msgAt("id-b", "b", entity.DirectionAdmin, at))

	msgs := store.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "id-a", msgs[0].ID)
	assert.Equal(t, "id-b", msgs[1].ID)
}

func TestEchoReconciliation(t *testing.T) {
	store := NewStore(newTestConv(), entity.DirectionUser, &fakeFetcher{})

	echo := store.AppendOutgoing("hello there", "", "")
	assert.True(t, echo.IsLocalEcho())
	require.Len(t, store.Messages(), 1)

	confirmed := msgAt("srv-1", "hello there", entity.DirectionUser, time.Now())
	assert.True(t, store.AppendIncoming(confirmed))

	msgs := store.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "srv-1", msgs[0].ID)
	assert.False(t, msgs[0].IsLocalEcho())
}

func TestEchoReconciliationEarliestPendingWins(t *testing.T) {
	store := NewStore(newTestConv(), entity.DirectionUser, &fakeFetcher{})

	first := store.AppendOutgoing("same text", "", "")
	second := store.AppendOutgoing("same text", "", "")

	store.AppendIncoming(msgAt("srv-1", "same text", entity.DirectionUser, time.Now()))

	msgs := store.Messages()
	require.Len(t, msgs, 2)

	ids := []string{msgs[0].ID, msgs[1].ID}
	assert.NotContains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
	assert.Contains(t, ids, "srv-1")
}

func TestUnmatchedConfirmationIsInserted(t *testing.T) {
	store := NewStore(newTestConv(), entity.DirectionUser, &fakeFetcher{})

	echo := store.AppendOutgoing("one thing", "", "")

	// A confirmation with different text must not consume the echo.
	store.AppendIncoming(msgAt("srv-1", "another thing", entity.DirectionUser, time.Now()))

	msgs := store.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, echo.ID, msgs[0].ID)
}

func TestEchoNotReconciledAcrossDirections(t *testing.T) {
	store := NewStore(newTestConv(), entity.DirectionUser, &fakeFetcher{})

	store.AppendOutgoing("hello", "", "")
	store.AppendIncoming(msgAt("srv-1", "hello", entity.DirectionAdmin, time.Now()))

	assert.Len(t, store.Messages(), 2)
}

func TestLoadRoomReplacesViewAndKeepsPendingEchoes(t *testing.T) {
	fetcher := &fakeFetcher{}
	store := NewStore(newTestConv(), entity.DirectionUser, fetcher)
	base := time.Now()

	store.AppendIncoming(msgAt("stale", "old view", entity.DirectionAdmin, base))
	echo := store.AppendOutgoing("unconfirmed", "", "")

	fetcher.messages = []*entity.Message{
		msgAt("srv-1", "fresh", entity.DirectionAdmin, base.Add(time.Second)),
	}
	require.NoError(t, store.LoadRoom(context.Background()))

	msgs := store.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "srv-1", msgs[0].ID)
	assert.Equal(t, echo.ID, msgs[1].ID)
}

func TestLoadRoomReconcilesFetchedCopyOfEcho(t *testing.T) {
	fetcher := &fakeFetcher{}
	store := NewStore(newTestConv(), entity.DirectionUser, fetcher)

	store.AppendOutgoing("hello", "", "")

	fetcher.messages = []*entity.Message{
		msgAt("srv-1", "hello", entity.DirectionUser, time.Now()),
	}
	require.NoError(t, store.LoadRoom(context.Background()))

	msgs := store.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "srv-1", msgs[0].ID)
}

func TestAppendIncomingUpdatesSummary(t *testing.T) {
	store := NewStore(newTestConv(), entity.DirectionUser, &fakeFetcher{})

	store.AppendIncoming(msgAt("id-1", "from support", entity.DirectionAdmin, time.Now()))

	conv := store.Conversation()
	assert.Equal(t, "from support", conv.LastMessage)
	assert.Equal(t, 1, conv.UserUnreadCount)
	assert.Equal(t, 0, conv.AdminUnreadCount)
}

func TestOwnMessagesDoNotBumpUnread(t *testing.T) {
	store := NewStore(newTestConv(), entity.DirectionUser, &fakeFetcher{})

	store.AppendIncoming(msgAt("id-1", "mine", entity.DirectionUser, time.Now()))

	assert.Equal(t, 0, store.Conversation().UserUnreadCount)
}
