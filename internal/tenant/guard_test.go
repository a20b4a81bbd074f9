package tenant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dualiteteste-sys/revo-billing/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func guardContext(t *testing.T, userID string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if userID != "" {
		c.Set(auth.ContextKeyUserID, userID)
	}
	return w, c
}

func TestGuard_Unauthenticated(t *testing.T) {
	guard := NewGuard(NewMemoryStore())

	w, c := guardContext(t, "")
	assert.False(t, guard.Authorize(c, "ten_1"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGuard_NotAMember(t *testing.T) {
	store := NewMemoryStore()
	guard := NewGuard(store)

	w, c := guardContext(t, "usr_1")
	assert.False(t, guard.Authorize(c, "ten_1"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	// Response must not reveal whether the tenant exists
	assert.NotContains(t, w.Body.String(), "not found")
}

func TestGuard_Member(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.AddMember(context.Background(), "usr_1", "ten_1"))
	guard := NewGuard(store)

	w, c := guardContext(t, "usr_1")
	assert.True(t, guard.Authorize(c, "ten_1"))
	assert.Equal(t, http.StatusOK, w.Code)
}
