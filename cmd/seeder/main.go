package main

import (
	"log"

	"github.com/safetalk/safetalk-backend/internal/config"
	"github.com/safetalk/safetalk-backend/internal/database"
	"github.com/safetalk/safetalk-backend/internal/models"
	"github.com/safetalk/safetalk-backend/internal/services"
	"golang.org/x/crypto/bcrypt"
)

// Seeds a pair of demo users plus an admin and a starter conversation.
// Intended for local development only.
func main() {
	config.LoadConfig()
	database.Connect()

	log.Println("Running migrations (just in case)...")
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

	password, _ := bcrypt.GenerateFromPassword([]byte("Safetalk1!"), bcrypt.DefaultCost)

	users := []models.User{
		{Username: "alice", DisplayName: "Alice", Email: "alice@example.com", Password: string(password), FaceVerified: true},
		{Username: "bob", DisplayName: "Bob", Email: "bob@example.com", Password: string(password), FaceVerified: true},
		{Username: "admin", DisplayName: "Admin", Email: "admin@example.com", Password: string(password), Role: models.RoleAdmin},
	}

	for i := range users {
		var existing models.User
		if err := database.DB.Where("username = ?", users[i].Username).First(&existing).Error; err == nil {
			users[i] = existing
			log.Printf("User %s already exists, skipping", existing.Username)
			continue
		}
		if err := database.DB.Create(&users[i]).Error; err != nil {
			log.Fatalf("Failed to seed user %s: %v", users[i].Username, err)
		}
		log.Printf("Seeded user %s", users[i].Username)
	}

	conv, err := services.ResolveConversation(users[0].ID, users[1].ID)
	if err != nil {
		log.Fatalf("Failed to seed conversation: %v", err)
	}

	var count int64
	database.DB.Model(&models.Message{}).Where("conversation_id = ?", conv.ID).Count(&count)
	if count == 0 {
		if _, err := services.AppendMessage(conv.ID, users[0].ID, "Hey Bob, welcome to SafeTalk!"); err != nil {
			log.Fatalf("Failed to seed message: %v", err)
		}
		if _, err := services.AppendMessage(conv.ID, users[1].ID, "Hi Alice, good to be here."); err != nil {
			log.Fatalf("Failed to seed message: %v", err)
		}
	}

	log.Println("Seed complete")
}
