package handler

import (
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"drivecash/internal/domain/entity"
	ws "drivecash/internal/infrastructure/websocket"
	"drivecash/internal/usecase"
	"drivecash/pkg/errors"
)

type WebSocketHandler struct {
	wsManager   *ws.Manager
	chatUseCase *usecase.ChatUseCase
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Restrict to the app origin in production
	},
}

func NewWebSocketHandler(wsManager *ws.Manager, chatUseCase *usecase.ChatUseCase) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:   wsManager,
		chatUseCase: chatUseCase,
	}
}

// HandleWebSocket upgrades the connection and registers the caller on the
// push channel. Borrowers are bound to their own room; operators hear all.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	userID, ok := c.Get("uid").(string)
	if !ok || userID == "" {
		return errors.Unauthorized("Authentication required", nil)
	}
	isAdmin, _ := c.Get("isAdmin").(bool)

	role := entity.DirectionUser
	conversationID := ""
	if isAdmin {
		role = entity.DirectionAdmin
	} else {
		userLabel, _ := c.Get("name").(string)
		conv, err := h.chatUseCase.GetOrCreateRoom(c.Request().Context(), userID, userLabel)
		if err != nil {
			return err
		}
		conversationID = conv.ID
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return errors.Internal("Failed to upgrade connection", err)
	}

	client := &ws.Client{
		UserID:         userID,
		Role:           role,
		ConversationID: conversationID,
		Conn:           conn,
		Send:           make(chan []byte, 256),
	}

	h.wsManager.Register <- client

	go client.ReadPump(h.wsManager)
	go client.WritePump()

	return nil
}
