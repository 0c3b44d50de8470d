package router

import (
	"github.com/labstack/echo/v4"

	"drivecash/internal/adapter/api/handler"
	"drivecash/internal/adapter/api/middleware"
)

// SetupWebSocketRouter wires the realtime push channel. Auth rides a query
// parameter because the browser WebSocket API cannot set headers.
func SetupWebSocketRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	wsHandler := handler.GetWebSocketHandler()
	e.GET("/ws", wsHandler.HandleWebSocket, authMiddleware.AuthenticateQueryToken)
}
