package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jobtalk/jobtalk-backend/internal/common"
)

// RequireAdmin checks that the authenticated principal is an admin
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok || !p.IsAdmin() {
			common.V2ErrorResponse(c, http.StatusForbidden, "admin role required", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
