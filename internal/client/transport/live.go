package transport

import (
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"drivecash/internal/domain/entity"
	"drivecash/pkg/logger"
)

// Wire frames exchanged with the push endpoint. The same shapes are produced
// by the server-side fan-out manager.
type frame struct {
	Type           string          `json:"type"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Message        *entity.Message `json:"message,omitempty"`
	MessageID      string          `json:"message_id,omitempty"`
	Status         string          `json:"status,omitempty"`
}

const (
	frameTypeMessage = "message"
	frameTypeStatus  = "status"
)

type liveTransport struct {
	cfg Config

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[int]Handler
	nextID   int
	endpoint string
	swapped  bool
	closed   bool
}

func dialLive(cfg Config) (*liveTransport, error) {
	l := &liveTransport{
		cfg:      cfg,
		handlers: make(map[int]Handler),
		endpoint: cfg.Endpoint,
	}

	conn, err := l.dialOnce()
	if err != nil {
		// The primary host repeatedly failed the handshake; swap the host
		// once and give it a last chance before degrading.
		l.swapHost()
		conn, err = l.dialOnce()
		if err != nil {
			return nil, err
		}
	}

	l.conn = conn
	go l.readLoop(conn)
	return l, nil
}

func (l *liveTransport) dialOnce() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: l.cfg.DialTimeout}

	endpoint := l.endpoint
	if l.cfg.Token != "" {
		endpoint += "?token=" + url.QueryEscape(l.cfg.Token)
	}

	var err error
	for attempt := 0; attempt < l.cfg.FallbackAfter; attempt++ {
		var conn *websocket.Conn
		conn, _, err = dialer.Dial(endpoint, nil)
		if err == nil {
			return conn, nil
		}
	}
	return nil, err
}

// swapHost replaces the endpoint host with the configured fallback. It only
// ever happens once per transport.
func (l *liveTransport) swapHost() {
	if l.swapped {
		return
	}
	l.swapped = true

	u, err := url.Parse(l.cfg.Endpoint)
	if err != nil {
		return
	}
	u.Host = l.cfg.FallbackHost
	l.endpoint = u.String()
	logger.Warn("Transport: primary push host unreachable, falling back to %s", l.cfg.FallbackHost)
}

func (l *liveTransport) OnMessage(handler Handler) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	l.handlers[id] = handler

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.handlers, id)
	}
}

func (l *liveTransport) Send(conversationID string, event Event) {
	f := frame{
		ConversationID: conversationID,
		Message:        event.Message,
		MessageID:      event.MessageID,
		Status:         event.Status,
	}
	if event.IsStatus() {
		f.Type = frameTypeStatus
	} else {
		f.Type = frameTypeMessage
	}

	payload, err := json.Marshal(f)
	if err != nil {
		return
	}

	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		logger.Debug("Transport: dropped outbound event for %s: %v", conversationID, err)
	}
}

func (l *liveTransport) Close() {
	l.mu.Lock()
	l.closed = true
	conn := l.conn
	l.conn = nil
	l.mu.Unlock()

	if conn != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect"))
		conn.Close()
	}
}

func (l *liveTransport) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			l.mu.Lock()
			closed := l.closed
			l.mu.Unlock()
			if closed {
				return
			}
			logger.Debug("Transport: push connection dropped: %v", err)
			l.reconnect()
			return
		}

		var f frame
		if err := json.Unmarshal(payload, &f); err != nil {
			logger.Debug("Transport: discarding malformed push frame: %v", err)
			continue
		}
		l.dispatch(f)
	}
}

func (l *liveTransport) dispatch(f frame) {
	var event Event
	switch f.Type {
	case frameTypeMessage:
		if f.Message == nil {
			return
		}
		event = Event{ConversationID: f.ConversationID, Message: f.Message}
	case frameTypeStatus:
		if f.MessageID == "" {
			return
		}
		event = Event{ConversationID: f.ConversationID, MessageID: f.MessageID, Status: f.Status}
	default:
		return
	}

	l.mu.Lock()
	handlers := make([]Handler, 0, len(l.handlers))
	for _, h := range l.handlers {
		handlers = append(handlers, h)
	}
	l.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

// reconnect retries with growing delays, bounded by MaxRetries. If the
// primary host keeps refusing the handshake the host is swapped once. When
// every attempt fails the transport goes quiet; polling still carries the
// room, so this is latency, not loss.
func (l *liveTransport) reconnect() {
	for attempt := 1; attempt <= l.cfg.MaxRetries; attempt++ {
		time.Sleep(l.cfg.RetryDelay * time.Duration(attempt))

		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return
		}
		l.mu.Unlock()

		conn, err := l.dialOnce()
		if err != nil {
			if !l.swapped {
				l.swapHost()
			}
			continue
		}

		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			conn.Close()
			return
		}
		l.conn = conn
		l.mu.Unlock()

		logger.Info("Transport: push connection re-established (attempt %d)", attempt)
		go l.readLoop(conn)
		return
	}

	logger.Warn("Transport: giving up on push channel after %d attempts", l.cfg.MaxRetries)
	l.mu.Lock()
	l.conn = nil
	l.mu.Unlock()
}
