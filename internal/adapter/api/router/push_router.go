package router

import (
	"github.com/labstack/echo/v4"

	"drivecash/internal/adapter/api/handler"
	"drivecash/internal/adapter/api/middleware"
)

func SetupPushRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	pushHandler := handler.GetPushHandler()

	pushGroup := e.Group("/v1/push")
	pushGroup.GET("/vapid-key", pushHandler.VAPIDKey) // public, the browser needs it before auth

	pushGroup.POST("/subscriptions", pushHandler.Subscribe, authMiddleware.Authenticate)
}
