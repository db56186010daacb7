package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safetalk/safetalk-backend/internal/config"
	"github.com/safetalk/safetalk-backend/internal/database"
	"github.com/safetalk/safetalk-backend/internal/models"
	"github.com/safetalk/safetalk-backend/internal/services"
	"github.com/safetalk/safetalk-backend/pkg/logger"
)

const blockStatsCacheTTL = 5 * time.Minute

func blockStatsCacheKey(userID string) string {
	return fmt.Sprintf("block_stats:%s", userID)
}

// CreateBlock appends a block record against a sender. Repeat blocks are
// allowed and each one counts - the ledger models repeated offenses, not a
// toggle.
func CreateBlock(c *gin.Context) {
	blockerID := c.MustGet("userId").(string)
	var req struct {
		BlockedID string  `json:"blockedId" binding:"required"`
		Reason    string  `json:"reason"`
		MessageID *string `json:"messageId"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// Blocked party must exist upstream
	var blocked models.User
	if err := database.DB.Select("id").First(&blocked, "id = ?", req.BlockedID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	record, totalBlocks, err := services.RecordBlock(blockerID, req.BlockedID, req.Reason, req.MessageID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSelfBlock):
			c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot block yourself"})
		case errors.Is(err, services.ErrInvalidParticipant):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user"})
		default:
			logger.Error().Err(err).Msg("Failed to create block record")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create block record"})
		}
		return
	}

	// Stats changed - drop the cached aggregate
	if database.Redis != nil {
		database.CacheInvalidate(blockStatsCacheKey(req.BlockedID))
	}

	// Push the escalation to admin feeds in realtime
	if totalBlocks >= int64(config.AppConfig.BlockAlertThreshold) {
		for _, adminID := range adminUserIDs() {
			NotifyEscalation(adminID, map[string]interface{}{
				"userId":      req.BlockedID,
				"totalBlocks": totalBlocks,
			})
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"blockRecord": record,
		"totalBlocks": totalBlocks,
	})
}

// GetBlockStats returns the aggregate block statistics for a user
func GetBlockStats(c *gin.Context) {
	userID := c.Param("userId")

	// Serve from cache when available
	if database.Redis != nil {
		var cached services.BlockStatsResult
		if err := database.CacheGet(blockStatsCacheKey(userID), &cached); err == nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	stats, err := services.BlockStats(userID)
	if err != nil {
		logger.Error().Err(err).Str("userId", userID).Msg("Failed to fetch block stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch block statistics"})
		return
	}

	if database.Redis != nil {
		database.CacheSet(blockStatsCacheKey(userID), stats, blockStatsCacheTTL)
	}

	c.JSON(http.StatusOK, stats)
}

// Unblock flips the caller's local block toggle off. Block history stays
// untouched - only the send affordance and prompt surfacing change.
func Unblock(c *gin.Context) {
	blockerID := c.MustGet("userId").(string)
	var req struct {
		BlockedID string `json:"blockedId" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := services.SetBlockState(blockerID, req.BlockedID, false); err != nil {
		if errors.Is(err, services.ErrSelfBlock) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user"})
			return
		}
		logger.Error().Err(err).Msg("Failed to update block state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unblock"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unblocked": true})
}

func adminUserIDs() []string {
	var ids []string
	if err := database.DB.Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Pluck("id", &ids).Error; err != nil {
		logger.Error().Err(err).Msg("Failed to load admin ids")
	}
	return ids
}
