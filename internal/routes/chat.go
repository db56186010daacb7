package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/safetalk/safetalk-backend/internal/handlers"
	"github.com/safetalk/safetalk-backend/internal/middleware"
)

func RegisterChatRoutes(r gin.IRouter) {
	chat := r.Group("/chat")
	chat.Use(middleware.AuthMiddleware())
	{
		chat.GET("/conversations", handlers.GetConversations)
		chat.GET("/messages", handlers.GetMessages) // ?conversationId=...
		chat.POST("/messages", middleware.ChatRateLimit(), handlers.SendMessage)
		chat.POST("/read/:conversationId", handlers.MarkRead)
	}
}
