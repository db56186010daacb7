package models

import "time"

// VerdictDismissal records that a recipient explicitly ignored a toxic verdict
// for one (sender, message) pair. Once a row exists the prompt is never
// re-surfaced to that recipient, across sessions and reconnects. The state is
// recipient-scoped, not global - other participants are unaffected.
type VerdictDismissal struct {
	RecipientID string    `gorm:"primaryKey;type:text" json:"recipientId"`
	SenderID    string    `gorm:"primaryKey;type:text" json:"senderId"`
	MessageID   string    `gorm:"primaryKey;type:text" json:"messageId"`
	CreatedAt   time.Time `json:"createdAt"`
}
