package handler

import (
	"github.com/labstack/echo/v4"

	"drivecash/internal/infrastructure/storage"
	"drivecash/internal/usecase"
	"drivecash/pkg/errors"
	"drivecash/pkg/response"
)

// 10 MB upload cap, matching the form parse limit.
const maxAttachmentSize = 10 << 20

type AttachmentHandler struct {
	chatUseCase   *usecase.ChatUseCase
	storageClient *storage.CloudStorageClient
}

func NewAttachmentHandler(chatUseCase *usecase.ChatUseCase, storageClient *storage.CloudStorageClient) *AttachmentHandler {
	return &AttachmentHandler{
		chatUseCase:   chatUseCase,
		storageClient: storageClient,
	}
}

// Upload stores an attachment and sends it as a message in one step.
func (h *AttachmentHandler) Upload(c echo.Context) error {
	userID := c.Get("uid").(string)
	isAdmin, _ := c.Get("isAdmin").(bool)
	roomID := c.Param("id")

	if _, err := h.chatUseCase.GetRoom(c.Request().Context(), roomID, userID, isAdmin); err != nil {
		return response.Error(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.BadRequest("File is required", err))
	}
	if fileHeader.Size > maxAttachmentSize {
		return response.Error(c, errors.BadRequest("File exceeds the 10MB limit", nil))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Failed to open uploaded file", err))
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	url, err := h.storageClient.UploadAttachment(c.Request().Context(), file, contentType, roomID, fileHeader.Filename)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to store attachment", err))
	}

	msg, err := h.chatUseCase.SendMessage(c.Request().Context(), userID, isAdmin, usecase.SendMessageInput{
		ConversationID: roomID,
		Text:           c.FormValue("text"),
		AttachmentURL:  url,
		AttachmentName: fileHeader.Filename,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, msg)
}
