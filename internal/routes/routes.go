package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/jobtalk/jobtalk-backend/internal/handler"
	"github.com/jobtalk/jobtalk-backend/internal/middleware"
	"github.com/jobtalk/jobtalk-backend/internal/service"
	"github.com/redis/go-redis/v9"
)

// Handlers groups everything the router dispatches to
type Handlers struct {
	Request *handler.RequestHandler
	Channel *handler.ChannelHandler
	WS      *handler.WSHandler
}

// Setup configures all API routes
func Setup(
	router *gin.Engine,
	h Handlers,
	auth service.Authenticator,
	redisClient *redis.Client,
	rateLimit middleware.RateLimitConfig,
) {
	api := router.Group("/api/v1", middleware.JWTAuth(auth), middleware.RateLimit(redisClient, rateLimit))

	// Request ledger
	requests := api.Group("/chat/requests")
	requests.POST("", h.Request.Submit)
	requests.GET("", h.Request.List)
	requests.GET("/:id", h.Request.Get)
	requests.POST("/:id/accept", h.Request.Accept)
	requests.POST("/:id/reject", h.Request.Reject)

	// Channels and history
	channels := api.Group("/chat/channels")
	channels.GET("", h.Channel.List)
	channels.GET("/:id/messages", h.Channel.History)
	channels.POST("/:id/read", h.Channel.MarkRead)
	channels.GET("/:id/unread", h.Channel.Unread)

	admin := api.Group("/admin", middleware.RequireAdmin())
	admin.GET("/chat/live", h.WS.Live)
	admin.DELETE("/chat/requests/:id", h.Request.Delete)

	// WebSocket authenticates itself so it can accept ?token=
	router.GET("/ws/chat/:id", h.WS.Connect)
}
