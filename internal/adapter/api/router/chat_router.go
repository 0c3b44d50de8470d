package router

import (
	"github.com/labstack/echo/v4"

	"drivecash/internal/adapter/api/handler"
	"drivecash/internal/adapter/api/middleware"
)

// SetupChatRouter wires the support-chat endpoints.
func SetupChatRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	chatHandler := handler.GetChatHandler()
	attachmentHandler := handler.GetAttachmentHandler()

	roomGroup := e.Group("/v1/rooms")
	roomGroup.Use(authMiddleware.Authenticate)

	// Borrower side
	roomGroup.GET("/my-room", chatHandler.MyRoom) // GET /v1/rooms/my-room - borrower's own room

	// Shared
	roomGroup.GET("/:id", chatHandler.GetRoom)
	roomGroup.GET("/:id/messages", chatHandler.ListMessages)
	roomGroup.POST("/:id/messages", chatHandler.SendMessage)
	roomGroup.PUT("/:id/read", chatHandler.MarkRead)
	roomGroup.POST("/:id/attachments", attachmentHandler.Upload)

	// Operator side
	roomGroup.GET("", chatHandler.ListRooms, adminMiddleware.AdminOnly)
	roomGroup.POST("/:id/resolve", chatHandler.Resolve, adminMiddleware.AdminOnly)

	statsGroup := e.Group("/v1/stats")
	statsGroup.Use(authMiddleware.Authenticate)
	statsGroup.Use(adminMiddleware.AdminOnly)
	statsGroup.GET("/me", chatHandler.Stats) // GET /v1/stats/me - resolved counter
}
