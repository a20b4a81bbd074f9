// Package auth extracts the caller identity asserted by the upstream
// identity provider.
//
// Session issuance and token validation happen at the identity-aware proxy
// in front of this service; by the time a request arrives here the proxy has
// already verified the session and asserts the user in the X-User-Id header.
// This package only reads that assertion and enforces its presence.
package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserHeader is the identity header set by the auth proxy.
const UserHeader = "X-User-Id"

// ContextKeyUserID is the gin context key for the authenticated user ID.
const ContextKeyUserID = "authUserId"

// Middleware records the asserted user identity in the gin context.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := strings.TrimSpace(c.GetHeader(UserHeader)); userID != "" {
			c.Set(ContextKeyUserID, userID)
		}
		c.Next()
	}
}

// RequireUser rejects requests without an asserted identity.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "authentication required",
			})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user's ID, or "" if unauthenticated.
func UserID(c *gin.Context) string {
	if id, ok := c.Get(ContextKeyUserID); ok {
		return id.(string)
	}
	return ""
}
