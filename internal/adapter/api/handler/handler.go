package handler

import (
	"drivecash/internal/infrastructure/storage"
	ws "drivecash/internal/infrastructure/websocket"
	"drivecash/internal/usecase"
)

var (
	chatHandler       *ChatHandler
	pushHandler       *PushHandler
	attachmentHandler *AttachmentHandler
	webSocketHandler  *WebSocketHandler
)

func Setup(
	chatUseCase *usecase.ChatUseCase,
	storageClient *storage.CloudStorageClient,
	wsManager *ws.Manager,
	vapidPublicKey string,
) {
	chatHandler = NewChatHandler(chatUseCase)
	pushHandler = NewPushHandler(chatUseCase, vapidPublicKey)
	attachmentHandler = NewAttachmentHandler(chatUseCase, storageClient)
	webSocketHandler = NewWebSocketHandler(wsManager, chatUseCase)
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetPushHandler() *PushHandler {
	return pushHandler
}

func GetAttachmentHandler() *AttachmentHandler {
	return attachmentHandler
}

func GetWebSocketHandler() *WebSocketHandler {
	return webSocketHandler
}
