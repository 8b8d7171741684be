package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	HeaderCustomerID   = "X-Customer-ID"
	HeaderSessionID    = "X-Session-ID"
	HeaderCustomerTier = "X-Customer-Tier"

	TierVIP = "vip"
)

// CustomerMiddleware resolves the shopper from the session layer's headers.
// Signed-in customers carry X-Customer-ID; guests fall back to X-Session-ID.
func CustomerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID := strings.TrimSpace(c.GetHeader(HeaderCustomerID))
		if customerID == "" {
			customerID = strings.TrimSpace(c.GetHeader(HeaderSessionID))
		}

		if customerID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "CUSTOMER_REQUIRED",
					"message": "Customer or session ID is required. Include X-Customer-ID or X-Session-ID header.",
				},
			})
			c.Abort()
			return
		}

		c.Set("customer_id", customerID)
		c.Set("customer_tier", strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderCustomerTier))))
		c.Next()
	}
}

// RequireVIP rejects customers outside the VIP tier. Must run after CustomerMiddleware.
func RequireVIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsVIP(c) {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VIP_REQUIRED",
					"message": "VIP membership is required",
				},
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetCustomerID retrieves the customer ID from gin context
func GetCustomerID(c *gin.Context) string {
	return c.GetString("customer_id")
}

func IsVIP(c *gin.Context) bool {
	return c.GetString("customer_tier") == TierVIP
}
