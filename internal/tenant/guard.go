package tenant

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dualiteteste-sys/revo-billing/internal/auth"
)

// Guard checks that the authenticated caller is linked to a tenant before
// any billing data for that tenant is exposed or mutated.
type Guard struct {
	store Store
}

// NewGuard creates a new access guard backed by the given store.
func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// Authorize verifies the caller's membership of tenantID. On failure it
// writes the error response (401 unauthenticated, 403 no link, 500 lookup
// failure) and returns false. A missing link never reveals whether the
// tenant itself exists.
func (g *Guard) Authorize(c *gin.Context, tenantID string) bool {
	userID := auth.UserID(c)
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "authentication required",
		})
		return false
	}

	member, err := g.store.IsMember(c.Request.Context(), userID, tenantID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "authorization check failed",
		})
		return false
	}
	if !member {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "no access to this company",
		})
		return false
	}
	return true
}
