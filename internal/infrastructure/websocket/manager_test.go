package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivecash/internal/domain/entity"
)

func register(t *testing.T, m *Manager, userID, role, conversationID string) *Client {
	client := &Client{
		UserID:         userID,
		Role:           role,
		ConversationID: conversationID,
		Send:           make(chan []byte, 16),
	}
	m.Register <- client

	require.Eventually(t, func() bool {
		m.mutex.RLock()
		defer m.mutex.RUnlock()
		_, ok := m.clients[userID]
		return ok
	}, time.Second, time.Millisecond)
	return client
}

func receiveFrame(t *testing.T, c *Client) Frame {
	select {
	case payload := <-c.Send:
		var f Frame
		require.NoError(t, json.Unmarshal(payload, &f))
		return f
	case <-time.After(time.Second):
		t.Fatal("expected a frame")
		return Frame{}
	}
}

func TestBroadcastReachesBorrowerAndOperators(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewManager()
	m.Start(ctx)

	borrower := register(t, m, "user-1", entity.DirectionUser, "room-1")
	operator := register(t, m, "op-1", entity.DirectionAdmin, "")
	stranger := register(t, m, "user-2", entity.DirectionUser, "room-2")

	// Operators see the borrower presence announcement first.
	presence := receiveFrame(t, operator)
	assert.Equal(t, FrameTypePresence, presence.Type)

	msg := &entity.Message{ID: "id-1", ConversationID: "room-1", Text: "hi", Direction: entity.DirectionUser}
	m.BroadcastToRoom("user-1", MessageFrame(msg))

	got := receiveFrame(t, borrower)
	assert.Equal(t, FrameTypeMessage, got.Type)
	assert.Equal(t, "id-1", got.Message.ID)

	got = receiveFrame(t, operator)
	assert.Equal(t, "id-1", got.Message.ID)

	select {
	case <-stranger.Send:
		t.Fatal("a borrower from another room must not receive the frame")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestIsUserOnlineTracksRegistration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewManager()
	m.Start(ctx)

	assert.False(t, m.IsUserOnline("user-1"))

	client := register(t, m, "user-1", entity.DirectionUser, "room-1")
	assert.True(t, m.IsUserOnline("user-1"))

	m.Unregister <- client
	assert.Eventually(t, func() bool {
		return !m.IsUserOnline("user-1")
	}, time.Second, time.Millisecond)
}

func TestAnyAdminOnline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewManager()
	m.Start(ctx)

	assert.False(t, m.AnyAdminOnline())
	register(t, m, "user-1", entity.DirectionUser, "room-1")
	assert.False(t, m.AnyAdminOnline())
	register(t, m, "op-1", entity.DirectionAdmin, "")
	assert.True(t, m.AnyAdminOnline())
}

func TestClientFrameRelayedToRoomExceptOrigin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewManager()
	m.Start(ctx)

	operator := register(t, m, "op-1", entity.DirectionAdmin, "")
	borrower := register(t, m, "user-1", entity.DirectionUser, "room-1")
	receiveFrame(t, operator) // presence

	payload, err := json.Marshal(Frame{
		Type:           FrameTypeStatus,
		ConversationID: "room-1",
		MessageID:      "id-1",
		Status:         entity.StatusRead,
	})
	require.NoError(t, err)
	m.handleClientFrame(borrower, payload)

	got := receiveFrame(t, operator)
	assert.Equal(t, FrameTypeStatus, got.Type)
	assert.Equal(t, entity.StatusRead, got.Status)

	select {
	case <-borrower.Send:
		t.Fatal("the publishing client must not hear its own frame")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPingAnsweredWithPong(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewManager()
	m.Start(ctx)

	borrower := register(t, m, "user-1", entity.DirectionUser, "room-1")

	payload, err := json.Marshal(Frame{Type: FrameTypePing})
	require.NoError(t, err)
	m.handleClientFrame(borrower, payload)

	got := receiveFrame(t, borrower)
	assert.Equal(t, FrameTypePong, got.Type)
}
