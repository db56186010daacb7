package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/safetalk/safetalk-backend/internal/handlers"
	"github.com/safetalk/safetalk-backend/internal/middleware"
)

func RegisterBlockRoutes(r gin.IRouter) {
	blocks := r.Group("/blocks")
	blocks.Use(middleware.AuthMiddleware())
	{
		blocks.POST("", handlers.CreateBlock)
		blocks.GET("/stats/:userId", handlers.GetBlockStats)
		blocks.POST("/unblock", handlers.Unblock)
	}
}
