package handlers

import (
	"github.com/safetalk/safetalk-backend/internal/config"
	"github.com/safetalk/safetalk-backend/internal/database"
	"github.com/safetalk/safetalk-backend/internal/models"
	"github.com/safetalk/safetalk-backend/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SetupTestDB initializes an in-memory SQLite DB for testing
func SetupTestDB() {
	logger.Init("test")
	config.AppConfig = &config.Config{JWTSecret: "test-secret", BlockAlertThreshold: 3}

	db, _ := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	// Single connection serializes writers, matching postgres transaction behavior
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	database.DB = db
	database.DB.AutoMigrate(
		&models.User{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.BlockRecord{},
		&models.BlockState{},
		&models.VerdictDismissal{},
		&models.Notification{},
	)
}
