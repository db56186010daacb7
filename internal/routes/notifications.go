package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/safetalk/safetalk-backend/internal/handlers"
	"github.com/safetalk/safetalk-backend/internal/middleware"
)

func RegisterNotificationRoutes(r gin.IRouter) {
	notifications := r.Group("/notifications")
	notifications.Use(middleware.AuthMiddleware())
	{
		notifications.GET("", handlers.GetNotifications)
		notifications.GET("/unread-count", handlers.GetUnreadCount)
		notifications.PUT("/:id/read", handlers.MarkNotificationRead)
	}
}
