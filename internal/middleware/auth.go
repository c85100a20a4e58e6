package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qufrids/ad-analyzer-sub000/internal/models"
)

const profileContextKey = "user_profile"

// SessionAuth returns middleware that resolves the Authorization bearer token
// to a user profile. Token issuance lives with the external auth provider;
// this layer only maps an opaque session token to the entitlement row.
func SessionAuth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
				"code":  "AUTH_REQUIRED",
			})
			return
		}

		// Expect "Bearer <token>" format
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization format. Use: Bearer <session_token>",
				"code":  "AUTH_INVALID_FORMAT",
			})
			return
		}

		var profile models.UserProfile
		if err := db.Where("api_token = ?", parts[1]).First(&profile).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid session token",
				"code":  "AUTH_INVALID_TOKEN",
			})
			return
		}

		c.Set(profileContextKey, &profile)
		c.Next()
	}
}

// ProfileFromContext returns the authenticated profile set by SessionAuth.
func ProfileFromContext(c *gin.Context) (*models.UserProfile, bool) {
	v, ok := c.Get(profileContextKey)
	if !ok {
		return nil, false
	}
	profile, ok := v.(*models.UserProfile)
	return profile, ok
}
