package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"drivecash/internal/domain/entity"
)

// Client represents one connected push-channel participant. Borrowers carry
// their own conversation id; operators see every room, so theirs is empty.
type Client struct {
	UserID         string
	Role           string
	ConversationID string
	Conn           *websocket.Conn
	Send           chan []byte
}

// Manager routes push frames: a message or status frame for a room goes to
// that room's borrower and to every connected operator. It also answers
// presence queries for the room directory's online flag.
type Manager struct {
	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Start runs the manager's main loop in a goroutine.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				m.clients[client.UserID] = client
				m.mutex.Unlock()
				log.Printf("WebSocket: client registered: %s (%s)", client.UserID, client.Role)
				if client.Role == entity.DirectionUser {
					m.broadcastPresence(client, true)
				}

			case client := <-m.Unregister:
				m.mutex.Lock()
				if _, ok := m.clients[client.UserID]; ok {
					delete(m.clients, client.UserID)
					close(client.Send)
				}
				m.mutex.Unlock()
				log.Printf("WebSocket: client unregistered: %s", client.UserID)
				if client.Role == entity.DirectionUser {
					m.broadcastPresence(client, false)
				}

			case <-ctx.Done():
				return
			}
		}
	}()
}

// IsUserOnline reports whether the borrower with the given id currently
// holds a push connection.
func (m *Manager) IsUserOnline(userID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	client, ok := m.clients[userID]
	return ok && client.Role == entity.DirectionUser
}

// AnyAdminOnline reports whether at least one operator holds a connection.
func (m *Manager) AnyAdminOnline() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, client := range m.clients {
		if client.Role == entity.DirectionAdmin {
			return true
		}
	}
	return false
}

// BroadcastToRoom delivers a frame to the room's borrower and to every
// connected operator.
func (m *Manager) BroadcastToRoom(borrowerID string, frame Frame) {
	m.broadcastToRoomExcept(borrowerID, "", frame)
}

func (m *Manager) broadcastToRoomExcept(borrowerID, exceptUserID string, frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Printf("WebSocket: failed to marshal frame: %v", err)
		return
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, client := range m.clients {
		if client.UserID == exceptUserID {
			continue
		}
		if client.Role != entity.DirectionAdmin && client.UserID != borrowerID {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			// Slow consumer; the periodic poll will catch it up.
			log.Printf("WebSocket: dropping frame for slow client %s", client.UserID)
		}
	}
}

// broadcastPresence tells operators a borrower came online or went away.
func (m *Manager) broadcastPresence(client *Client, online bool) {
	frame := Frame{
		Type:           FrameTypePresence,
		ConversationID: client.ConversationID,
		Online:         &online,
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, c := range m.clients {
		if c.Role != entity.DirectionAdmin {
			continue
		}
		select {
		case c.Send <- payload:
		default:
		}
	}
}

// handleClientFrame processes a frame a client published on the channel.
// Publishing is cross-tab echo, not persistence: the frame is relayed to the
// room's other participants and otherwise ignored.
func (m *Manager) handleClientFrame(client *Client, payload []byte) {
	var frame Frame
	if err := json.Unmarshal(payload, &frame); err != nil {
		log.Printf("WebSocket: invalid frame from %s: %v", client.UserID, err)
		return
	}

	switch frame.Type {
	case FrameTypePing:
		pong, _ := json.Marshal(Frame{Type: FrameTypePong})
		select {
		case client.Send <- pong:
		default:
		}

	case FrameTypeMessage, FrameTypeStatus:
		borrowerID := client.UserID
		if client.Role == entity.DirectionAdmin {
			// Operators publish into whichever room the frame names; the
			// borrower for it is resolved by conversation id.
			borrowerID = m.borrowerForConversation(frame.ConversationID)
		}
		m.broadcastToRoomExcept(borrowerID, client.UserID, frame)

	default:
		log.Printf("WebSocket: unknown frame type %q from %s", frame.Type, client.UserID)
	}
}

func (m *Manager) borrowerForConversation(conversationID string) string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, c := range m.clients {
		if c.Role == entity.DirectionUser && c.ConversationID == conversationID {
			return c.UserID
		}
	}
	return ""
}

// ReadPump reads frames from the connection until it drops.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, payload, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket: read error from %s: %v", c.UserID, err)
			}
			break
		}
		m.handleClientFrame(c, payload)
	}
}

// WritePump forwards queued frames to the connection.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		payload, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("WebSocket: write error to %s: %v", c.UserID, err)
			return
		}
	}
}
