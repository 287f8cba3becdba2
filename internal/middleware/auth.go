package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jobtalk/jobtalk-backend/internal/common"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
	"github.com/jobtalk/jobtalk-backend/internal/service"
)

const principalKey = "principal"

// JWTAuth authenticates the bearer token and stores the principal in the context
func JWTAuth(auth service.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			common.V2ErrorResponse(c, 401, "Missing authorization header", nil)
			c.Abort()
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			common.V2ErrorFrom(c, err, nil)
			c.Abort()
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header
func BearerToken(c *gin.Context) string {
	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// TokenFromRequest prefers the bearer header and falls back to the
// "token" query parameter, which browsers must use for WebSocket upgrades.
func TokenFromRequest(c *gin.Context) string {
	if token := BearerToken(c); token != "" {
		return token
	}
	return c.Query("token")
}

// SetPrincipal stores principal in the context
func SetPrincipal(c *gin.Context, principal domain.Principal) {
	c.Set(principalKey, principal)
}

// GetPrincipal extracts the authenticated principal from context
func GetPrincipal(c *gin.Context) (domain.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}

// GetUserID returns the authenticated user's ID, or 0
func GetUserID(c *gin.Context) uint64 {
	p, _ := GetPrincipal(c)
	return p.ID
}
