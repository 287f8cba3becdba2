package handler

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jobtalk/jobtalk-backend/internal/common"
	"github.com/jobtalk/jobtalk-backend/internal/middleware"
	"github.com/jobtalk/jobtalk-backend/internal/service"
	"github.com/jobtalk/jobtalk-backend/internal/ws"
	"github.com/samber/lo"
)

// WSHandler handles chat WebSocket sessions
type WSHandler struct {
	auth           service.Authenticator
	coordinator    *ws.Coordinator
	allowedOrigins []string
	sendBuffer     int
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(auth service.Authenticator, coordinator *ws.Coordinator, allowedOrigins string, sendBuffer int) *WSHandler {
	h := &WSHandler{
		auth:           auth,
		coordinator:    coordinator,
		allowedOrigins: parseOrigins(allowedOrigins),
		sendBuffer:     sendBuffer,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// parseOrigins parses comma-separated origins string
func parseOrigins(origins string) []string {
	if origins == "" || origins == "*" {
		return nil
	}
	return lo.Compact(lo.Map(strings.Split(origins, ","), func(p string, _ int) string {
		return strings.TrimSpace(p)
	}))
}

// checkOrigin validates the request origin against allowed origins.
// Requests without an Origin header and an empty allow list are accepted.
func (h *WSHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.allowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.allowedOrigins, origin)
}

// Connect handles GET /ws/chat/:id
// Authentication and channel authorization happen before the upgrade so a
// refused session gets a plain HTTP status.
// @Summary Real-time chat session
// @Tags chat
// @Param token query string false "access token when no Authorization header can be set"
// @Router /ws/chat/{id} [get]
func (h *WSHandler) Connect(c *gin.Context) {
	principal, err := h.auth.Authenticate(c.Request.Context(), middleware.TokenFromRequest(c))
	if err != nil {
		common.V2ErrorFrom(c, err, nil)
		return
	}
	middleware.SetPrincipal(c, principal)

	channelID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, err := h.coordinator.Authorize(c.Request.Context(), principal, channelID); err != nil {
		common.V2ErrorFrom(c, err, nil)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := ws.NewClient(h.coordinator, conn, principal, channelID, h.sendBuffer)
	// the channel may have been deleted while upgrading
	if err := h.coordinator.OnConnect(c.Request.Context(), client); err != nil {
		conn.WriteMessage(websocket.CloseMessage, //nolint:errcheck
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, common.CodeFromError(err)))
		client.Close() //nolint:errcheck
		return
	}

	go client.WritePump()
	go client.ReadPump(context.WithoutCancel(c.Request.Context()))
}

// LiveChannel is one entry of the live session overview
type LiveChannel struct {
	ChannelID   uint64 `json:"channel_id"`
	Connections int    `json:"connections"`
}

// Live handles GET /api/v1/admin/chat/live
// @Summary Channels with live sessions
// @Tags admin
// @Router /admin/chat/live [get]
func (h *WSHandler) Live(c *gin.Context) {
	registry := h.coordinator.Registry()
	channels := registry.Channels()
	slices.Sort(channels)

	data := lo.Map(channels, func(id uint64, _ int) LiveChannel {
		return LiveChannel{ChannelID: id, Connections: registry.Count(id)}
	})
	common.V2Success(c, data)
}
