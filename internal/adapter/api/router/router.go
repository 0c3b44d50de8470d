package router

import (
	"github.com/labstack/echo/v4"

	"drivecash/internal/adapter/api/middleware"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	SetupChatRouter(e, authMiddleware, adminMiddleware)
	SetupPushRouter(e, authMiddleware)
	SetupWebSocketRouter(e, authMiddleware)
	SetupHealthRouter(e)
}
