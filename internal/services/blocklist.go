package services

import (
	"fmt"
	"time"

	"github.com/safetalk/safetalk-backend/internal/config"
	"github.com/safetalk/safetalk-backend/internal/database"
	"github.com/safetalk/safetalk-backend/internal/models"
	"github.com/safetalk/safetalk-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlockStatsResult is the aggregate over all BlockRecords naming a user as the
// blocked party. Recomputed on demand, never stored.
type BlockStatsResult struct {
	Count          int64      `json:"count"`
	FirstBlockedAt *time.Time `json:"firstBlockedAt"`
	LastBlockedAt  *time.Time `json:"lastBlockedAt"`
}

// RecordBlock appends a new BlockRecord and activates the blocker's block
// state against the blocked user. The ledger is append-only: blocking the same
// user twice yields two records. Returns the record and the blocked user's
// total block count.
//
// When the count crosses the configured threshold an escalation signal is
// emitted (warn log + system notification to admins). The signal is
// observational only and never gates messaging.
func RecordBlock(blockerID, blockedID, reason string, messageID *string) (*models.BlockRecord, int64, error) {
	if blockerID == blockedID {
		return nil, 0, ErrSelfBlock
	}
	if blockerID == "" || blockedID == "" {
		return nil, 0, ErrInvalidParticipant
	}

	record := models.BlockRecord{
		BlockerID: blockerID,
		BlockedID: blockedID,
		Reason:    reason,
		MessageID: messageID,
		CreatedAt: time.Now(),
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		// Activate the recipient-local block toggle alongside the ledger row
		state := models.BlockState{
			BlockerID: blockerID,
			BlockedID: blockedID,
			Active:    true,
			UpdatedAt: record.CreatedAt,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "blocker_id"}, {Name: "blocked_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"active": true, "updated_at": record.CreatedAt}),
		}).Create(&state).Error
	})
	if err != nil {
		return nil, 0, err
	}

	stats, err := BlockStats(blockedID)
	if err != nil {
		return nil, 0, err
	}

	threshold := int64(3)
	if config.AppConfig != nil && config.AppConfig.BlockAlertThreshold > 0 {
		threshold = int64(config.AppConfig.BlockAlertThreshold)
	}
	if stats.Count >= threshold {
		escalateRepeatOffender(blockedID, stats.Count)
	}

	return &record, stats.Count, nil
}

// BlockStats aggregates the block ledger for one blocked user. Count and
// bounds come from a single statement, so a concurrent insert can never yield
// a count that disagrees with the timestamps.
func BlockStats(userID string) (*BlockStatsResult, error) {
	row := database.DB.Model(&models.BlockRecord{}).
		Where("blocked_id = ?", userID).
		Select("count(*), min(created_at), max(created_at)").
		Row()

	var count int64
	var first, last interface{}
	if err := row.Scan(&count, &first, &last); err != nil {
		return nil, err
	}

	stats := BlockStatsResult{Count: count}
	if count > 0 {
		firstAt, err := aggregateTime(first)
		if err != nil {
			return nil, err
		}
		lastAt, err := aggregateTime(last)
		if err != nil {
			return nil, err
		}
		stats.FirstBlockedAt = &firstAt
		stats.LastBlockedAt = &lastAt
	}
	return &stats, nil
}

// aggregateTime normalizes a min/max timestamp column across drivers:
// postgres hands back time.Time, sqlite loses the column decltype on
// aggregate expressions and hands back the stored text.
func aggregateTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return parseStoredTime(t)
	case []byte:
		return parseStoredTime(string(t))
	}
	return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
}

var storedTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func parseStoredTime(s string) (time.Time, error) {
	for _, layout := range storedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// IsActivelyBlocked reports whether blocker currently holds an active block
// against blocked. This is the recipient-local toggle, not the ledger.
func IsActivelyBlocked(blockerID, blockedID string) (bool, error) {
	var count int64
	err := database.DB.Model(&models.BlockState{}).
		Where("blocker_id = ? AND blocked_id = ? AND active = ?", blockerID, blockedID, true).
		Count(&count).Error
	return count > 0, err
}

// SetBlockState flips the recipient-local toggle. Unblocking never deletes
// BlockRecord history.
func SetBlockState(blockerID, blockedID string, active bool) error {
	if blockerID == blockedID {
		return ErrSelfBlock
	}
	state := models.BlockState{
		BlockerID: blockerID,
		BlockedID: blockedID,
		Active:    active,
		UpdatedAt: time.Now(),
	}
	return database.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blocker_id"}, {Name: "blocked_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"active": active, "updated_at": state.UpdatedAt}),
	}).Create(&state).Error
}

func escalateRepeatOffender(blockedID string, count int64) {
	logger.Warn().
		Str("userId", blockedID).
		Int64("blockCount", count).
		Msg("User crossed the repeat-offender block threshold")

	var admins []models.User
	if err := database.DB.Where("role = ?", models.RoleAdmin).Find(&admins).Error; err != nil {
		logger.Error().Err(err).Msg("Failed to load admins for escalation notification")
		return
	}
	for _, admin := range admins {
		notification := models.Notification{
			UserID:  admin.ID,
			ActorID: blockedID,
			Type:    models.NotificationTypeEscalation,
			Message: fmt.Sprintf("A user has been blocked %d times and may need review", count),
		}
		if err := database.DB.Create(&notification).Error; err != nil {
			logger.Error().Err(err).Str("adminId", admin.ID).Msg("Failed to create escalation notification")
		}
	}
}
