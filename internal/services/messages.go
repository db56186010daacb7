package services

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/safetalk/safetalk-backend/internal/database"
	"github.com/safetalk/safetalk-backend/internal/models"
	"github.com/safetalk/safetalk-backend/pkg/logger"
	"gorm.io/gorm"
)

// AppendMessage persists a message and bumps the conversation's updated_at to
// the message time, all in one transaction. Nothing becomes visible if any
// step fails - the fan-out layer only ever sees committed messages.
func AppendMessage(conversationID, senderID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	var msg models.Message
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var link models.ConversationParticipant
		if err := tx.Where("conversation_id = ? AND user_id = ?", conversationID, senderID).
			First(&link).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidSender
			}
			return err
		}

		msg = models.Message{
			ConversationID: conversationID,
			SenderID:       senderID,
			Content:        content,
			Status:         models.MessageStatusSent,
			CreatedAt:      time.Now(),
		}
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}

		return tx.Model(&models.Conversation{}).
			Where("id = ?", conversationID).
			Update("updated_at", msg.CreatedAt).Error
	})
	if err != nil {
		return nil, err
	}

	// The message is committed at this point; a failed reload only costs the
	// embedded sender profile, not the message itself
	if err := database.DB.Preload("Sender").First(&msg, "id = ?", msg.ID).Error; err != nil {
		logger.Warn().Err(err).Str("messageId", msg.ID).Msg("Failed to reload message with sender")
	}
	return &msg, nil
}

// ListMessages returns the conversation's messages in delivery order:
// created_at ascending, ties broken by id ascending. Safe to call repeatedly,
// each call reflects the committed state.
func ListMessages(conversationID string) ([]models.Message, error) {
	var messages []models.Message
	err := database.DB.Where("conversation_id = ?", conversationID).
		Order("created_at asc, id asc").
		Preload("Sender").
		Find(&messages).Error
	return messages, err
}

// ConversationSummary is the listing shape consumed by the chat UI.
type ConversationSummary struct {
	ConversationID string           `json:"conversationId"`
	Participant    *models.User     `json:"participant"`
	LastMessage    string           `json:"lastMessage"`
	Messages       []models.Message `json:"messages"`
	UnreadCount    int64            `json:"unreadCount"`
	Blocked        bool             `json:"blocked"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// ListConversations returns the user's conversations most-recent-first.
// Conversations without any message sort after all conversations with
// messages.
func ListConversations(userID string) ([]ConversationSummary, error) {
	var links []models.ConversationParticipant
	if err := database.DB.Where("user_id = ?", userID).Find(&links).Error; err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(links))
	for _, link := range links {
		var conv models.Conversation
		if err := database.DB.First(&conv, "id = ?", link.ConversationID).Error; err != nil {
			return nil, err
		}

		other, err := OtherParticipant(conv.ID, userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		messages, err := ListMessages(conv.ID)
		if err != nil {
			return nil, err
		}

		var unread int64
		if err := database.DB.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conv.ID, userID, false).
			Count(&unread).Error; err != nil {
			return nil, err
		}

		summary := ConversationSummary{
			ConversationID: conv.ID,
			Participant:    other,
			LastMessage:    "No messages yet",
			Messages:       messages,
			UnreadCount:    unread,
			UpdatedAt:      conv.UpdatedAt,
		}
		if len(messages) > 0 {
			summary.LastMessage = messages[len(messages)-1].Content
		}
		if other != nil {
			blocked, err := IsActivelyBlocked(userID, other.ID)
			if err != nil {
				return nil, err
			}
			summary.Blocked = blocked
		}
		summaries = append(summaries, summary)
	}

	// Most-recent-first; threads with no messages go last
	sort.SliceStable(summaries, func(i, j int) bool {
		iEmpty, jEmpty := len(summaries[i].Messages) == 0, len(summaries[j].Messages) == 0
		if iEmpty != jEmpty {
			return jEmpty
		}
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})

	return summaries, nil
}

// MarkConversationRead flags all peer messages in the conversation as read and
// returns how many were updated.
func MarkConversationRead(conversationID, userID string) (int64, error) {
	now := time.Now()
	result := database.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": now,
			"status":  models.MessageStatusRead,
		})
	return result.RowsAffected, result.Error
}
