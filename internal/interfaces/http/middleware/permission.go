package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireCapability aborts with 403 unless the authenticated actor holds the
// named capability. Service-layer checks still run; this just fails fast at
// the route boundary.
func RequireCapability(capability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ERR_UNAUTHORIZED",
					"message": "Authentication required",
				},
			})
			return
		}

		if !actor.HasCapability(capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ERR_FORBIDDEN",
					"message": "Missing required capability: " + capability,
				},
			})
			return
		}

		c.Next()
	}
}
