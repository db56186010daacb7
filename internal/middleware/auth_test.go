package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/safetalk/safetalk-backend/internal/config"
	"github.com/safetalk/safetalk-backend/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func optionalAuthRequest(t *testing.T, header string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/api/users/someone", nil)
	if header != "" {
		c.Request.Header.Set("Authorization", header)
	}
	return c, w
}

func TestOptionalAuth_AnonymousPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config.AppConfig = &config.Config{JWTSecret: "test-secret"}

	c, _ := optionalAuthRequest(t, "")
	OptionalAuthMiddleware()(c)

	assert.False(t, c.IsAborted())
	_, exists := c.Get("userId")
	assert.False(t, exists)
}

func TestOptionalAuth_ValidTokenSetsUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config.AppConfig = &config.Config{JWTSecret: "test-secret"}

	token, err := utils.GenerateToken("u_opt")
	require.NoError(t, err)

	c, _ := optionalAuthRequest(t, "Bearer "+token)
	OptionalAuthMiddleware()(c)

	assert.False(t, c.IsAborted())
	userID, exists := c.Get("userId")
	require.True(t, exists)
	assert.Equal(t, "u_opt", userID)
}

func TestOptionalAuth_MalformedHeaderTreatedAsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config.AppConfig = &config.Config{JWTSecret: "test-secret"}

	c, _ := optionalAuthRequest(t, "garbage")
	OptionalAuthMiddleware()(c)

	assert.False(t, c.IsAborted())
	_, exists := c.Get("userId")
	assert.False(t, exists)
}
