package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jobtalk/jobtalk-backend/pkg/logger"
)

// V2Response standard API response envelope
type V2Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *V2Meta     `json:"meta,omitempty"`
	Error   *V2Error    `json:"error,omitempty"`
}

// V2Meta cursor pagination metadata
type V2Meta struct {
	Limit      int    `json:"limit,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
	Total      int64  `json:"total,omitempty"`
}

// V2Error error details
type V2Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// V2Success returns a success response
func V2Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, V2Response{
		Success: true,
		Data:    data,
	})
}

// V2SuccessWithMeta returns a success response with pagination
func V2SuccessWithMeta(c *gin.Context, data interface{}, meta *V2Meta) {
	c.JSON(http.StatusOK, V2Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// V2Created returns a 201 Created response
func V2Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, V2Response{
		Success: true,
		Data:    data,
	})
}

// V2ErrorResponse returns an error response
func V2ErrorResponse(c *gin.Context, status int, message string, err error) {
	v2Err := &V2Error{
		Code:    getErrorCode(status),
		Message: message,
	}
	if err != nil {
		v2Err.Details = err.Error()
	}
	c.JSON(status, V2Response{
		Success: false,
		Error:   v2Err,
	})
}

// V2ErrorFrom derives status and code from a business error.
// data, when not nil, is returned alongside the error (e.g. the existing
// entity on a conflict).
func V2ErrorFrom(c *gin.Context, err error, data interface{}) {
	status := StatusFromError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.GetLogger().Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		message = "internal server error"
	}
	c.JSON(status, V2Response{
		Success: false,
		Data:    data,
		Error: &V2Error{
			Code:    CodeFromError(err),
			Message: message,
		},
	})
}

// getErrorCode generates error code from HTTP status
func getErrorCode(status int) string {
	switch status {
	case 400:
		return "BAD_REQUEST"
	case 401:
		return "UNAUTHORIZED"
	case 403:
		return "FORBIDDEN"
	case 404:
		return "NOT_FOUND"
	case 409:
		return "CONFLICT"
	case 429:
		return "RATE_LIMITED"
	case 500:
		return "INTERNAL_SERVER_ERROR"
	default:
		return "ERROR"
	}
}
