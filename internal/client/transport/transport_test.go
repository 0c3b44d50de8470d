package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivecash/internal/domain/entity"
)

// echoServer is a minimal push endpoint: it records the handshake request
// and can send frames to the connected client.
type echoServer struct {
	srv      *httptest.Server
	upgrader gorillaws.Upgrader

	mu    sync.Mutex
	conns []*gorillaws.Conn
	query string
}

func newEchoServer(t *testing.T) *echoServer {
	s := &echoServer{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.query = r.URL.RawQuery
		s.mu.Unlock()

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *echoServer) endpoint() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
}

func (s *echoServer) host() string {
	return strings.TrimPrefix(s.srv.URL, "http://")
}

func (s *echoServer) push(t *testing.T, f frame) {
	payload, err := json.Marshal(f)
	require.NoError(t, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.conns)
	require.NoError(t, s.conns[len(s.conns)-1].WriteMessage(gorillaws.TextMessage, payload))
}

func quickConfig(endpoint string) Config {
	return Config{
		Endpoint:      endpoint,
		FallbackHost:  "127.0.0.1:1",
		MaxRetries:    1,
		RetryDelay:    time.Millisecond,
		FallbackAfter: 1,
		DialTimeout:   200 * time.Millisecond,
	}
}

func TestConnectReturnsInertWhenUnreachable(t *testing.T) {
	tr := Connect(quickConfig("ws://127.0.0.1:1/ws"))
	require.NotNil(t, tr)

	_, isInert := tr.(inertTransport)
	assert.True(t, isInert)

	// The degraded transport still honors the full contract.
	unsub := tr.OnMessage(func(Event) { t.Fatal("inert transport must never deliver") })
	tr.Send("room-1", Event{ConversationID: "room-1"})
	unsub()
	tr.Close()
}

func TestConnectDeliversPushedMessages(t *testing.T) {
	server := newEchoServer(t)

	tr := Connect(quickConfig(server.endpoint()))
	defer tr.Close()

	_, isInert := tr.(inertTransport)
	require.False(t, isInert)

	var mu sync.Mutex
	var got []Event
	tr.OnMessage(func(ev Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})

	server.push(t, frame{
		Type:           frameTypeMessage,
		ConversationID: "room-1",
		Message:        &entity.Message{ID: "id-1", ConversationID: "room-1", Text: "hi"},
	})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0].Message != nil && got[0].Message.ID == "id-1"
	}, time.Second, 5*time.Millisecond)
}

func TestConnectDeliversStatusEvents(t *testing.T) {
	server := newEchoServer(t)

	tr := Connect(quickConfig(server.endpoint()))
	defer tr.Close()

	var mu sync.Mutex
	var got []Event
	tr.OnMessage(func(ev Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})

	server.push(t, frame{
		Type:           frameTypeStatus,
		ConversationID: "room-1",
		MessageID:      "id-1",
		Status:         entity.StatusRead,
	})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0].IsStatus() && got[0].Status == entity.StatusRead
	}, time.Second, 5*time.Millisecond)
}

func TestConnectPassesTokenAsQueryParameter(t *testing.T) {
	server := newEchoServer(t)

	cfg := quickConfig(server.endpoint())
	cfg.Token = "id-token-123"
	tr := Connect(cfg)
	defer tr.Close()

	server.mu.Lock()
	query := server.query
	server.mu.Unlock()
	assert.Equal(t, "token=id-token-123", query)
}

func TestConnectFallsBackToAlternateHost(t *testing.T) {
	server := newEchoServer(t)

	cfg := quickConfig("ws://127.0.0.1:1/ws")
	cfg.FallbackHost = server.host()
	tr := Connect(cfg)
	defer tr.Close()

	_, isInert := tr.(inertTransport)
	assert.False(t, isInert)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	server := newEchoServer(t)

	tr := Connect(quickConfig(server.endpoint()))
	defer tr.Close()

	var mu sync.Mutex
	count := 0
	unsub := tr.OnMessage(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	unsub()

	server.push(t, frame{
		Type:           frameTypeMessage,
		ConversationID: "room-1",
		Message:        &entity.Message{ID: "id-1"},
	})

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, count)
}

func TestMalformedFramesAreDiscarded(t *testing.T) {
	server := newEchoServer(t)

	tr := Connect(quickConfig(server.endpoint()))
	defer tr.Close()

	delivered := make(chan Event, 1)
	tr.OnMessage(func(ev Event) { delivered <- ev })

	server.mu.Lock()
	conn := server.conns[len(server.conns)-1]
	server.mu.Unlock()
	require.NoError(t, conn.WriteMessage(gorillaws.TextMessage, []byte("not json")))

	// A valid frame after the garbage still comes through.
	server.push(t, frame{
		Type:           frameTypeMessage,
		ConversationID: "room-1",
		Message:        &entity.Message{ID: "id-1"},
	})

	select {
	case ev := <-delivered:
		assert.Equal(t, "id-1", ev.Message.ID)
	case <-time.After(time.Second):
		t.Fatal("expected the valid frame to be delivered")
	}
}
