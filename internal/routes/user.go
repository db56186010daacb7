package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/safetalk/safetalk-backend/internal/handlers"
	"github.com/safetalk/safetalk-backend/internal/middleware"
)

func RegisterUserRoutes(r gin.IRouter) {
	users := r.Group("/users")

	// Public directory surface: profile pages are viewable logged out, auth
	// only personalizes the response
	users.GET("/:id", middleware.OptionalAuthMiddleware(), handlers.GetUser)

	authed := users.Group("")
	authed.Use(middleware.AuthMiddleware())
	{
		authed.GET("", handlers.ListUsers)
		authed.GET("/me", handlers.GetMe)
	}
}
