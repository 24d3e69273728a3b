package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ilyosdev/smeta-api/models"
	"github.com/ilyosdev/smeta-api/utils"
)

const (
	ctxUserID = "user_id"
	ctxOrgID  = "org_id"
	ctxRole   = "role"
)

// AuthMiddleware validates the Bearer token and stashes the tenant context
// (user id, org id, role) on the gin context for downstream handlers.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		claims, err := utils.ParseAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxOrgID, claims.OrgID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// GetUserID returns the authenticated user id, or "" when unauthenticated.
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// GetTenant returns the full tenant context for the current call.
func GetTenant(c *gin.Context) models.TenantContext {
	return models.TenantContext{
		UserID: c.GetString(ctxUserID),
		OrgID:  c.GetString(ctxOrgID),
		Role:   c.GetString(ctxRole),
	}
}
