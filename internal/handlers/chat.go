package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safetalk/safetalk-backend/internal/services"
	"github.com/safetalk/safetalk-backend/pkg/logger"
)

// SendMessage is the send path: resolve the conversation, validate, persist,
// then publish. Publishing happens only after the message is durably stored.
// Toxicity classification is NOT part of this path - it runs off the
// recipient's view of the conversation (see toxicity.go).
func SendMessage(c *gin.Context) {
	senderID := c.MustGet("userId").(string)
	var req struct {
		ReceiverID string `json:"receiverId" binding:"required"`
		Content    string `json:"content" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	content, err := SanitizeMessageContent(req.Content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conversation, err := services.ResolveConversation(senderID, req.ReceiverID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidParticipant):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid receiver"})
		case errors.Is(err, services.ErrConversationConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "Could not resolve conversation, please retry"})
		default:
			logger.Error().Err(err).Msg("Failed to resolve conversation")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		}
		return
	}

	msg, err := services.AppendMessage(conversation.ID, senderID, content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyContent):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Message cannot be empty"})
		case errors.Is(err, services.ErrInvalidSender):
			c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this conversation"})
		default:
			logger.Error().Err(err).Str("conversationId", conversation.ID).Msg("Failed to persist message")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		}
		return
	}

	// Fan out only now that the message is committed
	PublishMessage(msg, req.ReceiverID)

	// If the receiver holds an active block against the sender, the message is
	// still stored (history is preserved) but the client disables the send
	// affordance until the receiver unblocks.
	blocked, err := services.IsActivelyBlocked(req.ReceiverID, senderID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read block state")
		blocked = false
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      msg,
		"conversation": conversation,
		"blocked":      blocked,
	})
}

// GetConversations returns the user's conversations, most recent first, with
// the other participant, last message and full ordered history.
func GetConversations(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	conversations, err := services.ListConversations(userID)
	if err != nil {
		logger.Error().Err(err).Str("userId", userID).Msg("Failed to fetch conversations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to fetch active chats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  conversations,
		"total": len(conversations),
	})
}

// GetMessages returns the ordered history of one conversation
func GetMessages(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	conversationID := c.Query("conversationId")

	if conversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId required"})
		return
	}

	isParticipant, err := services.IsParticipant(conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}
	if !isParticipant {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this conversation"})
		return
	}

	messages, err := services.ListMessages(conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// MarkRead marks all peer messages in a conversation as read
func MarkRead(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	conversationID := c.Param("conversationId")

	isParticipant, err := services.IsParticipant(conversationID, userID)
	if err != nil || !isParticipant {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this conversation"})
		return
	}

	marked, err := services.MarkConversationRead(conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark read"})
		return
	}

	// Notify the other party their messages were read
	if marked > 0 {
		if other, err := services.OtherParticipant(conversationID, userID); err == nil {
			NotifyMessagesRead(other.ID, userID)
		}
	}

	c.JSON(http.StatusOK, gin.H{"markedRead": marked})
}
