package chatapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivecash/internal/domain/entity"
	"drivecash/pkg/errors"
)

func respond(t *testing.T, w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestMyRoom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/rooms/my-room", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		respond(t, w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    entity.Conversation{ID: "room-1", UserID: "user-1"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token")
	conv, err := client.MyRoom(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "room-1", conv.ID)
}

func TestListRoomsDecodesPaginatedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"items": []entity.Conversation{
					{ID: "room-1"},
					{ID: "room-2"},
				},
				"total": 2,
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token")
	rooms, err := client.ListRooms(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "room-2", rooms[1].ID)
}

func TestSendPostsAndDecodesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/rooms/room-1/messages", r.URL.Path)

		var req sendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Text)

		respond(t, w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data": entity.Message{
				ID:             "srv-1",
				ConversationID: "room-1",
				Text:           req.Text,
				Direction:      entity.DirectionUser,
				Status:         entity.StatusSent,
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token")
	msg, err := client.Send(context.Background(), "room-1", "hello", "", "")
	require.NoError(t, err)
	assert.Equal(t, "srv-1", msg.ID)
	assert.Equal(t, entity.StatusSent, msg.Status)
}

func TestServerErrorSurfacesCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"error": map[string]string{
				"code":    "NOT_FOUND",
				"message": "Conversation not found",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token")
	_, err := client.MyRoom(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestUnreachableServerMapsToUnavailable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "test-token")

	_, err := client.MyRoom(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, "UNAVAILABLE"))
}

func TestMarkReadAndResolveHitExpectedPaths(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		respond(t, w, http.StatusOK, map[string]interface{}{"success": true})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token")
	require.NoError(t, client.MarkRead(context.Background(), "room-1"))
	require.NoError(t, client.Resolve(context.Background(), "room-1"))
	require.NoError(t, client.Subscribe(context.Background(), "room-1", "https://push.example/ep", "p256dh", "auth"))

	assert.Equal(t, []string{
		"PUT /v1/rooms/room-1/read",
		"POST /v1/rooms/room-1/resolve",
		"POST /v1/push/subscriptions",
	}, paths)
}
