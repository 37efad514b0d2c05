package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/tribu-research/challenge-backend/internal/auth"
	"github.com/tribu-research/challenge-backend/pkg/response"
)

// Role returns the role claim set by JWT, or "".
func Role(c *gin.Context) string {
	v, _ := c.Get(ContextUserRole)
	role, _ := v.(string)
	return role
}

// RequireRole must run after JWT. Callers without a role get 401, callers
// with another role get 403.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := Role(c)
		if role == "" {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "role "+role+" may not perform this action")
		c.Abort()
	}
}

// RequireAdmin guards operator endpoints: presentation creation, manual job
// runs and report archives.
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(auth.RoleAdmin)
}
