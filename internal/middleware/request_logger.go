package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jobtalk/jobtalk-backend/pkg/logger"
	"github.com/rs/zerolog"
)

const requestIDKey = "request_id"

// health checks and scrapes are logged at debug level
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// RequestLogger logs one line per request. WebSocket sessions are logged
// when the upgrade handler returns, not when the session ends.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		status := c.Writer.Status()
		log := logger.WithRequestID(requestID)
		level := zerolog.InfoLevel
		switch {
		case status >= 500:
			level = zerolog.ErrorLevel
		case status >= 400:
			level = zerolog.WarnLevel
		case quietPaths[c.Request.URL.Path]:
			level = zerolog.DebugLevel
		}

		event := log.WithLevel(level).
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP())
		if userID := GetUserID(c); userID != 0 {
			event = event.Uint64("user_id", userID)
		}
		if c.IsWebsocket() {
			event = event.Bool("websocket", true)
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.Msg("request")
	}
}
