package handler

import (
	"github.com/labstack/echo/v4"

	"drivecash/internal/usecase"
	"drivecash/pkg/response"
)

type PushHandler struct {
	chatUseCase    *usecase.ChatUseCase
	vapidPublicKey string
}

func NewPushHandler(chatUseCase *usecase.ChatUseCase, vapidPublicKey string) *PushHandler {
	return &PushHandler{
		chatUseCase:    chatUseCase,
		vapidPublicKey: vapidPublicKey,
	}
}

type subscribeRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	Endpoint       string `json:"endpoint" validate:"required,url"`
	P256dhKey      string `json:"p256dh_key" validate:"required"`
	AuthKey        string `json:"auth_key" validate:"required"`
}

// Subscribe registers a browser push subscription for a room.
func (h *PushHandler) Subscribe(c echo.Context) error {
	var req subscribeRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)
	isAdmin, _ := c.Get("isAdmin").(bool)

	sub, err := h.chatUseCase.RegisterSubscription(c.Request().Context(), userID, isAdmin, usecase.SubscribeInput{
		ConversationID: req.ConversationID,
		Endpoint:       req.Endpoint,
		P256dhKey:      req.P256dhKey,
		AuthKey:        req.AuthKey,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, sub)
}

// VAPIDKey hands the browser the public key it needs to subscribe.
func (h *PushHandler) VAPIDKey(c echo.Context) error {
	return response.Success(c, map[string]string{
		"public_key": h.vapidPublicKey,
	})
}
