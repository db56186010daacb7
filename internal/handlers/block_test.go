package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/safetalk/safetalk-backend/internal/database"
	"github.com/safetalk/safetalk-backend/internal/models"
	"github.com/safetalk/safetalk-backend/internal/services"
	"github.com/stretchr/testify/assert"
)

func TestCreateBlock_AppendOnly(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	blocker := models.User{ID: "blocker_ap", Username: "blocker_ap", Email: "blocker_ap@example.com"}
	target := models.User{ID: "target_ap", Username: "target_ap", Email: "target_ap@example.com"}
	database.DB.Create(&blocker)
	database.DB.Create(&target)

	first := postJSON(t, CreateBlock, "blocker_ap", "/api/blocks", map[string]interface{}{
		"blockedId": "target_ap", "reason": "spam",
	})
	second := postJSON(t, CreateBlock, "blocker_ap", "/api/blocks", map[string]interface{}{
		"blockedId": "target_ap", "reason": "spam again",
	})

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)

	// Two rows, not an upsert to one
	var r2 struct {
		TotalBlocks int64 `json:"totalBlocks"`
	}
	json.Unmarshal(second.Body.Bytes(), &r2)
	assert.Equal(t, int64(2), r2.TotalBlocks)

	var count int64
	database.DB.Model(&models.BlockRecord{}).
		Where("blocker_id = ? AND blocked_id = ?", "blocker_ap", "target_ap").Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestCreateBlock_SelfBlockRejected(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	u := models.User{ID: "selfie", Username: "selfie", Email: "selfie@example.com"}
	database.DB.Create(&u)

	w := postJSON(t, CreateBlock, "selfie", "/api/blocks", map[string]interface{}{
		"blockedId": "selfie", "reason": "oops",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Rejected before any write
	var count int64
	database.DB.Model(&models.BlockRecord{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestGetBlockStats(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	b1 := models.User{ID: "b1_stats", Username: "b1_stats", Email: "b1_stats@example.com"}
	b2 := models.User{ID: "b2_stats", Username: "b2_stats", Email: "b2_stats@example.com"}
	target := models.User{ID: "t_stats", Username: "t_stats", Email: "t_stats@example.com"}
	database.DB.Create(&b1)
	database.DB.Create(&b2)
	database.DB.Create(&target)

	rec1, _, err := services.RecordBlock("b1_stats", "t_stats", "spam", nil)
	assert.NoError(t, err)
	rec2, _, err := services.RecordBlock("b2_stats", "t_stats", "harassment", nil)
	assert.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/api/blocks/stats/t_stats", nil)
	c.Params = gin.Params{{Key: "userId", Value: "t_stats"}}

	GetBlockStats(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var stats services.BlockStatsResult
	json.Unmarshal(w.Body.Bytes(), &stats)

	assert.Equal(t, int64(2), stats.Count)
	if assert.NotNil(t, stats.FirstBlockedAt) && assert.NotNil(t, stats.LastBlockedAt) {
		assert.False(t, stats.FirstBlockedAt.After(rec1.CreatedAt))
		assert.False(t, stats.LastBlockedAt.Before(rec2.CreatedAt))
	}
}

func TestCreateBlock_EscalationNotifiesAdmins(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	admin := models.User{ID: "admin_esc", Username: "admin_esc", Email: "admin_esc@example.com", Role: models.RoleAdmin}
	target := models.User{ID: "t_esc", Username: "t_esc", Email: "t_esc@example.com"}
	database.DB.Create(&admin)
	database.DB.Create(&target)

	for i, blockerID := range []string{"e1", "e2", "e3"} {
		u := models.User{ID: blockerID, Username: blockerID, Email: blockerID + "@example.com"}
		database.DB.Create(&u)
		w := postJSON(t, CreateBlock, blockerID, "/api/blocks", map[string]interface{}{
			"blockedId": "t_esc", "reason": "abuse",
		})
		assert.Equal(t, http.StatusCreated, w.Code, "block %d", i+1)
	}

	// Third block crosses the threshold and lands in the admin's feed
	var notifications []models.Notification
	database.DB.Where("user_id = ? AND type = ?", "admin_esc", models.NotificationTypeEscalation).
		Find(&notifications)
	assert.Len(t, notifications, 1)
	if len(notifications) == 1 {
		assert.Equal(t, "t_esc", notifications[0].ActorID)
	}
}

func TestUnblock_PreservesHistory(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	blocker := models.User{ID: "b_unb", Username: "b_unb", Email: "b_unb@example.com"}
	target := models.User{ID: "t_unb", Username: "t_unb", Email: "t_unb@example.com"}
	database.DB.Create(&blocker)
	database.DB.Create(&target)

	services.RecordBlock("b_unb", "t_unb", "spam", nil)

	active, _ := services.IsActivelyBlocked("b_unb", "t_unb")
	assert.True(t, active)

	w := postJSON(t, Unblock, "b_unb", "/api/blocks/unblock", map[string]interface{}{
		"blockedId": "t_unb",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	active, _ = services.IsActivelyBlocked("b_unb", "t_unb")
	assert.False(t, active)

	// Ledger untouched by the toggle
	var count int64
	database.DB.Model(&models.BlockRecord{}).
		Where("blocker_id = ? AND blocked_id = ?", "b_unb", "t_unb").Count(&count)
	assert.Equal(t, int64(1), count)
}
