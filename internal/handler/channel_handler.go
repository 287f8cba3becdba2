package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jobtalk/jobtalk-backend/internal/common"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
	"github.com/jobtalk/jobtalk-backend/internal/service"
	"github.com/samber/lo"
)

// ChannelHandler handles channel and message history HTTP requests
type ChannelHandler struct {
	channels service.ChannelService
	chat     service.ChatService
}

// NewChannelHandler creates a new ChannelHandler
func NewChannelHandler(channels service.ChannelService, chat service.ChatService) *ChannelHandler {
	return &ChannelHandler{channels: channels, chat: chat}
}

// List handles GET /api/v1/chat/channels
// @Summary List the caller's channels, most recently active first
// @Tags chat
// @Router /chat/channels [get]
func (h *ChannelHandler) List(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	channels, err := h.channels.ListFor(c.Request.Context(), principal)
	if err != nil {
		common.V2ErrorFrom(c, err, nil)
		return
	}

	data := lo.Map(channels, func(ch *domain.Channel, _ int) *domain.ChannelResponse {
		return ch.ToResponse()
	})
	common.V2Success(c, data)
}

// History handles GET /api/v1/chat/channels/:id/messages?cursor=&limit=
// @Summary Page through a channel's messages, oldest first
// @Tags chat
// @Router /chat/channels/{id}/messages [get]
func (h *ChannelHandler) History(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l < 0 {
			common.V2ErrorResponse(c, http.StatusBadRequest, "invalid limit", err)
			return
		}
		limit = l
	}

	page, err := h.chat.History(c.Request.Context(), id, principal, c.Query("cursor"), limit)
	if err != nil {
		common.V2ErrorFrom(c, err, nil)
		return
	}

	data := lo.Map(page.Messages, func(m *domain.ChatMessage, _ int) *domain.ChatMessageResponse {
		return m.ToResponse()
	})
	common.V2SuccessWithMeta(c, data, &common.V2Meta{
		Limit:      len(data),
		NextCursor: page.NextCursor,
	})
}

// MarkRead handles POST /api/v1/chat/channels/:id/read
// @Summary Advance the caller's read marker
// @Tags chat
// @Router /chat/channels/{id}/read [post]
func (h *ChannelHandler) MarkRead(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req domain.MarkReadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.V2ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
			return
		}
	}

	marker, err := h.chat.MarkRead(c.Request.Context(), id, principal, lo.FromPtr(req.At))
	if err != nil {
		common.V2ErrorFrom(c, err, nil)
		return
	}
	common.V2Success(c, marker)
}

// Unread handles GET /api/v1/chat/channels/:id/unread
// @Summary Count the counterpart's messages after the caller's read marker
// @Tags chat
// @Router /chat/channels/{id}/unread [get]
func (h *ChannelHandler) Unread(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	count, err := h.chat.UnreadCount(c.Request.Context(), id, principal)
	if err != nil {
		common.V2ErrorFrom(c, err, nil)
		return
	}
	common.V2Success(c, gin.H{"channel_id": id, "unread": count})
}
