package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safetalk/safetalk-backend/internal/database"
	"github.com/safetalk/safetalk-backend/internal/models"
)

// GetMe returns the authenticated user's own profile
func GetMe(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// GetUser returns another user's public profile (user directory surface)
func GetUser(c *gin.Context) {
	userID := c.Param("id")

	var user models.User
	if err := database.DB.
		Select("id", "username", "display_name", "image", "bio", "face_verified", "created_at").
		First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ListUsers returns users the caller can start a conversation with
func ListUsers(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var users []models.User
	if err := database.DB.
		Select("id", "username", "display_name", "image", "face_verified").
		Where("id <> ?", userID).
		Order("username asc").
		Limit(100).
		Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}
