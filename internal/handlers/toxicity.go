package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safetalk/safetalk-backend/internal/services"
	"github.com/safetalk/safetalk-backend/pkg/logger"
	"github.com/safetalk/safetalk-backend/pkg/utils"
)

// CheckMessageToxicity classifies a received message's text on behalf of the
// recipient viewing it. The call is advisory: it decides whether the client
// should surface a block prompt, never whether the message is delivered.
//
// prompt=false when the recipient already dismissed the verdict for this exact
// (sender, message) pair, or already holds an active block against the sender.
func CheckMessageToxicity(c *gin.Context) {
	recipientID := c.MustGet("userId").(string)
	var req struct {
		Text      string `json:"text" binding:"required"`
		MessageID string `json:"messageId" binding:"required"`
		SenderID  string `json:"senderId" binding:"required"`
		UseGroq   bool   `json:"useGroq"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// Suppression check first: a dismissed (sender, message) pair is never
	// re-surfaced to this recipient, even across reconnects
	dismissed, err := services.IsVerdictDismissed(recipientID, req.SenderID, req.MessageID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to check verdict dismissal")
	}
	alreadyBlocked, err := services.IsActivelyBlocked(recipientID, req.SenderID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read block state")
	}

	if dismissed {
		c.JSON(http.StatusOK, gin.H{
			"verdict": services.Verdict{
				IsToxic:             false,
				NonToxicProbability: 1,
				Model:               "none",
				Explanation:         "verdict previously dismissed by recipient",
			},
			"prompt":  false,
			"blocked": alreadyBlocked,
		})
		return
	}

	verdict := services.ClassifyMessage(
		c.Request.Context(),
		utils.NormalizeWhitespace(req.Text),
		req.UseGroq,
	)

	c.JSON(http.StatusOK, gin.H{
		"verdict": verdict,
		"prompt":  verdict.IsToxic && !alreadyBlocked,
		"blocked": alreadyBlocked,
	})
}

// DismissVerdict records that the recipient chose "Ignore" on a toxic verdict
// for one (sender, message) pair
func DismissVerdict(c *gin.Context) {
	recipientID := c.MustGet("userId").(string)
	var req struct {
		SenderID  string `json:"senderId" binding:"required"`
		MessageID string `json:"messageId" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := services.DismissVerdict(recipientID, req.SenderID, req.MessageID); err != nil {
		logger.Error().Err(err).Msg("Failed to record verdict dismissal")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to dismiss"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"dismissed": true})
}
