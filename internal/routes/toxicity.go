package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safetalk/safetalk-backend/internal/handlers"
	"github.com/safetalk/safetalk-backend/internal/middleware"
)

func RegisterToxicityRoutes(r gin.IRouter) {
	toxicity := r.Group("/toxicity")
	// IP limiter absorbs bursts; the redis quota caps what a single user can
	// spend on the remote classifier per minute, across devices
	toxicity.Use(
		middleware.AuthMiddleware(),
		middleware.ToxicityRateLimit(),
		middleware.UserRateLimit("toxicity", 60, time.Minute),
	)
	{
		toxicity.POST("/check", handlers.CheckMessageToxicity)
		toxicity.POST("/dismiss", handlers.DismissVerdict)
	}
}
