package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskdesk/internal/authz"
)

// RequireRoles пускает дальше только актёров с одной из ролей.
// Должен стоять после AuthMiddleware.
func RequireRoles(allowed ...int) gin.HandlerFunc {
	allowedSet := make(map[int]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}
	return func(c *gin.Context) {
		v, exists := c.Get(authz.ActorContextKey)
		actor, ok := v.(authz.Actor)
		if !exists || !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if _, ok := allowedSet[actor.RoleID]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// RequireAdmin is RequireRoles(authz.RoleAdmin).
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(authz.RoleAdmin)
}
