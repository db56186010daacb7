package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/safetalk/safetalk-backend/internal/database"
	"github.com/safetalk/safetalk-backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestGetUser_PublicProfile(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	u := models.User{ID: "pub_u", Username: "pub_u", Email: "pub_u@example.com", Bio: "hi"}
	database.DB.Create(&u)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/api/users/pub_u", nil)
	c.Params = gin.Params{{Key: "id", Value: "pub_u"}}

	// No userId in context - the profile surface allows anonymous viewers
	GetUser(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		User models.User `json:"user"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "pub_u", response.User.ID)
	assert.Equal(t, "hi", response.User.Bio)
	// Private columns are never selected on the public surface
	assert.Empty(t, response.User.Email)
}
