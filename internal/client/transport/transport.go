package transport

import (
	"time"

	"drivecash/internal/domain/entity"
	"drivecash/pkg/logger"
)

// Event is what the push channel delivers: either a whole message or a
// delivery-status transition for one message. Exactly one of Message or
// MessageID is set.
type Event struct {
	ConversationID string          `json:"conversation_id"`
	Message        *entity.Message `json:"message,omitempty"`
	MessageID      string          `json:"message_id,omitempty"`
	Status         string          `json:"status,omitempty"`
}

// IsStatus reports whether the event is a status transition rather than a
// new message.
func (e Event) IsStatus() bool {
	return e.Message == nil && e.MessageID != ""
}

// Handler receives push events. Handlers are invoked at most once per
// underlying transport delivery, but consumers must not rely on that for
// dedup; the message store is the arbiter.
type Handler func(Event)

// Transport is the push channel a chat session listens on. It has two
// implementations: a live gorilla/websocket client and an inert no-op used
// when the channel cannot be established. Callers never branch on which one
// they got; everything keeps working against the inert one, only slower
// (polling carries the traffic).
type Transport interface {
	// OnMessage registers a listener and returns its unsubscribe func.
	OnMessage(handler Handler) (unsubscribe func())

	// Send best-effort publishes an event for other listeners on the channel
	// (cross-tab echo). It is not a persistence path and may silently drop.
	Send(conversationID string, event Event)

	Close()
}

// Config describes the push endpoint and its recovery behavior. Retry and
// fallback are configuration, not protocol.
type Config struct {
	// Endpoint is the websocket URL, e.g. "ws://localhost:8000/ws".
	Endpoint string

	// FallbackHost replaces the endpoint host once, after the primary host
	// repeatedly fails the handshake. The documented fallback is the
	// alternate loopback address.
	FallbackHost string

	// Token is passed as a query parameter, mirroring the REST bearer token.
	Token string

	MaxRetries     int
	RetryDelay     time.Duration
	FallbackAfter  int
	DialTimeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.FallbackHost == "" {
		c.FallbackHost = "127.0.0.1:8000"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.FallbackAfter <= 0 {
		c.FallbackAfter = 2
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	return c
}

// Connect establishes the push channel. If the initial handshake cannot be
// completed on either host, it returns an inert transport that satisfies the
// same contract with empty operations; it never returns an error.
func Connect(cfg Config) Transport {
	cfg = cfg.withDefaults()

	live, err := dialLive(cfg)
	if err != nil {
		logger.Warn("Transport: push channel unavailable, continuing without it: %v", err)
		return NewInert()
	}
	return live
}
