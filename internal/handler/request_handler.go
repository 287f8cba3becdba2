package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jobtalk/jobtalk-backend/internal/common"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
	"github.com/jobtalk/jobtalk-backend/internal/middleware"
	"github.com/jobtalk/jobtalk-backend/internal/service"
	"github.com/samber/lo"
)

// RequestHandler handles chat request HTTP requests
type RequestHandler struct {
	requests service.RequestService
	channels service.ChannelService
}

// NewRequestHandler creates a new RequestHandler
func NewRequestHandler(requests service.RequestService, channels service.ChannelService) *RequestHandler {
	return &RequestHandler{requests: requests, channels: channels}
}

// AcceptResponse is returned by a successful accept
type AcceptResponse struct {
	Request *domain.ChatRequestResponse `json:"request"`
	Channel *domain.ChannelResponse     `json:"channel"`
}

// Submit handles POST /api/v1/chat/requests
// @Summary Submit a chat request for a listing
// @Tags chat
// @Success 201 {object} common.V2Response{data=domain.ChatRequestResponse}
// @Failure 409 {object} common.V2Response{data=domain.ChatRequestResponse}
// @Router /chat/requests [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req domain.SubmitChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.V2ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.requests.Submit(c.Request.Context(), principal, req.ListingID)
	if err != nil {
		if errors.Is(err, common.ErrConflict) && result != nil {
			common.V2ErrorFrom(c, err, result.ToResponse())
			return
		}
		common.V2ErrorFrom(c, err, nil)
		return
	}

	common.V2Created(c, result.ToResponse())
}

// List handles GET /api/v1/chat/requests?status=
// @Summary List the caller's chat requests, newest first
// @Tags chat
// @Router /chat/requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var status *domain.RequestStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.RequestStatus(raw)
		status = &s
	}

	requests, err := h.requests.ListMine(c.Request.Context(), principal, status)
	if err != nil {
		common.V2ErrorFrom(c, err, nil)
		return
	}

	data := lo.Map(requests, func(r *domain.ChatRequest, _ int) *domain.ChatRequestResponse {
		return r.ToResponse()
	})
	common.V2SuccessWithMeta(c, data, &common.V2Meta{Total: int64(len(data))})
}

// Get handles GET /api/v1/chat/requests/:id
// @Summary Get a chat request
// @Tags chat
// @Router /chat/requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.requests.Get(c.Request.Context(), principal, id)
	if err != nil {
		common.V2ErrorFrom(c, err, nil)
		return
	}
	common.V2Success(c, result.ToResponse())
}

// Accept handles POST /api/v1/chat/requests/:id/accept
// @Summary Accept a chat request, opening its channel
// @Tags chat
// @Success 200 {object} common.V2Response{data=AcceptResponse}
// @Router /chat/requests/{id}/accept [post]
func (h *RequestHandler) Accept(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.requests.Approve(c.Request.Context(), principal, id)
	if err != nil {
		common.V2ErrorFrom(c, err, nil)
		return
	}

	channel, err := h.channels.GetByRequest(c.Request.Context(), principal, result.ID)
	if err != nil {
		common.V2ErrorFrom(c, err, nil)
		return
	}

	common.V2Success(c, &AcceptResponse{
		Request: result.ToResponse(),
		Channel: channel.ToResponse(),
	})
}

// Reject handles POST /api/v1/chat/requests/:id/reject
// @Summary Reject a chat request
// @Tags chat
// @Router /chat/requests/{id}/reject [post]
func (h *RequestHandler) Reject(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.requests.Reject(c.Request.Context(), principal, id)
	if err != nil {
		common.V2ErrorFrom(c, err, nil)
		return
	}
	common.V2Success(c, result.ToResponse())
}

// Delete handles DELETE /api/v1/admin/chat/requests/:id
// @Summary Delete a request together with its channel and messages
// @Tags admin
// @Router /admin/chat/requests/{id} [delete]
func (h *RequestHandler) Delete(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.requests.Delete(c.Request.Context(), principal, id); err != nil {
		common.V2ErrorFrom(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// requirePrincipal writes 401 when the route was reached without authentication
func requirePrincipal(c *gin.Context) (domain.Principal, bool) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		common.V2ErrorResponse(c, http.StatusUnauthorized, "authentication required", nil)
		return domain.Principal{}, false
	}
	return principal, true
}

func parseID(c *gin.Context, param string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		common.V2ErrorResponse(c, http.StatusBadRequest, "invalid "+param, err)
		return 0, false
	}
	return id, true
}
