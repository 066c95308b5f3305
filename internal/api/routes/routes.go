package routes

import (
	"os"

	"github.com/couchly/sofa-advisor/internal/api/handlers"
	"github.com/couchly/sofa-advisor/internal/api/middleware"

	"github.com/gin-gonic/gin"
)

type Deps struct {
	Chat *handlers.ChatHandler
	WS   *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	api := r.Group("/")
	if os.Getenv("JWT_SECRET") != "" {
		api.Use(middleware.JWTAuth())
	}

	api.POST("/chat", d.Chat.Chat)
	api.POST("/chat/stream", d.Chat.ChatStream)
	api.POST("/chat/image", d.Chat.UploadImage)

	// WebSocket
	api.GET("/ws/chat", d.WS.ChatWS)
}
