package services

import (
	"errors"
	"time"

	"github.com/safetalk/safetalk-backend/internal/database"
	"github.com/safetalk/safetalk-backend/internal/models"
	"github.com/safetalk/safetalk-backend/pkg/logger"
	"gorm.io/gorm"
)

// resolveMaxAttempts bounds the create-then-recheck loop when two senders race
// on creating the same pair's conversation.
const resolveMaxAttempts = 3

// PairKey normalizes an unordered user pair into the unique conversation key.
func PairKey(a, b string) string {
	if a < b {
		return a + ":" + b
	}
	return b + ":" + a
}

// ResolveConversation returns the existing private conversation between the
// two users or creates it exactly once. The conversation plus both participant
// rows are inserted in a single transaction; if a concurrent caller won the
// race, the unique index on pair_key rejects the insert and we retry the
// lookup instead of creating a duplicate.
func ResolveConversation(senderID, receiverID string) (*models.Conversation, error) {
	if senderID == "" || receiverID == "" || senderID == receiverID {
		return nil, ErrInvalidParticipant
	}

	// Both identifiers must exist in the user directory
	var count int64
	if err := database.DB.Model(&models.User{}).
		Where("id IN ?", []string{senderID, receiverID}).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count != 2 {
		return nil, ErrInvalidParticipant
	}

	key := PairKey(senderID, receiverID)

	for attempt := 0; attempt < resolveMaxAttempts; attempt++ {
		var conv models.Conversation
		err := database.DB.Where("pair_key = ?", key).First(&conv).Error
		if err == nil {
			return &conv, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		now := time.Now()
		conv = models.Conversation{
			Type:      models.ConversationTypePrivate,
			PairKey:   key,
			CreatedAt: now,
			UpdatedAt: now,
		}

		createErr := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&conv).Error; err != nil {
				return err
			}
			participants := []models.ConversationParticipant{
				{ConversationID: conv.ID, UserID: senderID, JoinedAt: now},
				{ConversationID: conv.ID, UserID: receiverID, JoinedAt: now},
			}
			return tx.Create(&participants).Error
		})
		if createErr == nil {
			return &conv, nil
		}
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			// Lost the race - the winner's row exists now, re-run the lookup
			logger.Debug().Str("pairKey", key).Int("attempt", attempt+1).
				Msg("Conversation create conflict, retrying lookup")
			continue
		}
		return nil, createErr
	}

	return nil, ErrConversationConflict
}

// IsParticipant reports whether the user belongs to the conversation.
func IsParticipant(conversationID, userID string) (bool, error) {
	var count int64
	err := database.DB.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

// OtherParticipant returns the peer user of a private conversation.
func OtherParticipant(conversationID, userID string) (*models.User, error) {
	var link models.ConversationParticipant
	err := database.DB.Preload("User").
		Where("conversation_id = ? AND user_id <> ?", conversationID, userID).
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link.User, nil
}
