package handler

import (
	"github.com/labstack/echo/v4"

	"drivecash/internal/usecase"
	"drivecash/pkg/response"
	"drivecash/pkg/utils"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type sendMessageRequest struct {
	Text           string `json:"text"`
	AttachmentURL  string `json:"attachment_url,omitempty" validate:"omitempty,url"`
	AttachmentName string `json:"attachment_name,omitempty"`
}

// MyRoom returns the borrower's own support room, creating it on first use.
func (h *ChatHandler) MyRoom(c echo.Context) error {
	userID := c.Get("uid").(string)
	userLabel, _ := c.Get("name").(string)

	room, err := h.chatUseCase.GetOrCreateRoom(c.Request().Context(), userID, userLabel)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, room)
}

// ListRooms lists support rooms for the operator dashboard.
func (h *ChatHandler) ListRooms(c echo.Context) error {
	params := utils.GetPaginationParams(c)
	activeOnly := c.QueryParam("status") != "all"

	rooms, total, err := h.chatUseCase.ListRooms(c.Request().Context(), activeOnly, params.PageSize, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, rooms, total, params.Page, params.PageSize)
}

// GetRoom returns one room by id.
func (h *ChatHandler) GetRoom(c echo.Context) error {
	userID := c.Get("uid").(string)
	isAdmin, _ := c.Get("isAdmin").(bool)

	room, err := h.chatUseCase.GetRoom(c.Request().Context(), c.Param("id"), userID, isAdmin)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, room)
}

// ListMessages returns a room's messages oldest first.
func (h *ChatHandler) ListMessages(c echo.Context) error {
	userID := c.Get("uid").(string)
	isAdmin, _ := c.Get("isAdmin").(bool)
	params := utils.GetPaginationParams(c)

	messages, total, err := h.chatUseCase.ListMessages(c.Request().Context(), c.Param("id"), userID, isAdmin, params.PageSize, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, messages, total, params.Page, params.PageSize)
}

// SendMessage posts a message into the room.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)
	isAdmin, _ := c.Get("isAdmin").(bool)

	msg, err := h.chatUseCase.SendMessage(c.Request().Context(), userID, isAdmin, usecase.SendMessageInput{
		ConversationID: c.Param("id"),
		Text:           req.Text,
		AttachmentURL:  req.AttachmentURL,
		AttachmentName: req.AttachmentName,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, msg)
}

// MarkRead marks the other side's messages in the room as read.
func (h *ChatHandler) MarkRead(c echo.Context) error {
	userID := c.Get("uid").(string)
	isAdmin, _ := c.Get("isAdmin").(bool)

	count, err := h.chatUseCase.MarkRoomRead(c.Request().Context(), c.Param("id"), userID, isAdmin)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"updated": count,
	})
}

// Resolve closes the room and credits the operator.
func (h *ChatHandler) Resolve(c echo.Context) error {
	operatorID := c.Get("uid").(string)

	room, err := h.chatUseCase.ResolveRoom(c.Request().Context(), c.Param("id"), operatorID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, room)
}

// Stats returns the operator's resolved-conversation counter.
func (h *ChatHandler) Stats(c echo.Context) error {
	operatorID := c.Get("uid").(string)

	stats, err := h.chatUseCase.GetStats(c.Request().Context(), operatorID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, stats)
}
