package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const HeaderAdminKey = "X-Admin-Key"

// AdminMiddleware guards the back-office routes with a shared API key. With no
// key configured the routes stay open in development and closed elsewhere.
func AdminMiddleware(apiKey, environment string, logger *logrus.Logger) gin.HandlerFunc {
	if apiKey == "" && environment == "development" {
		logger.Warn("ADMIN_API_KEY is not set; admin routes are open in development")
	}
	return func(c *gin.Context) {
		if apiKey == "" {
			if environment == "development" {
				c.Set("admin", true)
				c.Next()
				return
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "CONFIGURATION_ERROR",
					"message": "Admin API key is not configured",
				},
				"missing": []string{"ADMIN_API_KEY"},
			})
			c.Abort()
			return
		}

		provided := c.GetHeader(HeaderAdminKey)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Valid X-Admin-Key header is required",
				},
			})
			c.Abort()
			return
		}

		c.Set("admin", true)
		c.Next()
	}
}
