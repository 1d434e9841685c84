package http

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// BearerMiddleware creates middleware that validates the static bearer
// key protecting the sidecar API
func BearerMiddleware(bearerKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		// Check if the Authorization header is present and in correct format
		if len(auth) < 8 || auth[:7] != "Bearer " {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		// Constant-time comparison of the presented key
		if subtle.ConstantTimeCompare([]byte(auth[7:]), []byte(bearerKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid bearer key"})
			return
		}

		c.Next()
	}
}
