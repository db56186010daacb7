package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlockRecord is one immutable record of a user blocking another, optionally
// tied to the message that triggered it. Rows are append-only: blocking the
// same user twice produces two rows and a count of 2, never an upsert.
type BlockRecord struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	BlockerID string    `gorm:"index;type:text;not null" json:"blockerId"`
	BlockedID string    `gorm:"index;type:text;not null" json:"blockedId"`
	Reason    string    `gorm:"type:text" json:"reason"`
	MessageID *string   `gorm:"type:text" json:"messageId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	// Relations
	Blocker User     `gorm:"foreignKey:BlockerID" json:"-"`
	Blocked User     `gorm:"foreignKey:BlockedID" json:"-"`
	Message *Message `gorm:"foreignKey:MessageID" json:"message,omitempty"`
}

func (b *BlockRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return
}

// BlockState is the recipient-local active/inactive toggle behind the client
// "unblock" button. Flipping it never touches BlockRecord history - the ledger
// stays append-only while the send affordance follows this flag.
type BlockState struct {
	BlockerID string    `gorm:"primaryKey;type:text" json:"blockerId"`
	BlockedID string    `gorm:"primaryKey;type:text" json:"blockedId"`
	Active    bool      `gorm:"default:true" json:"active"`
	UpdatedAt time.Time `json:"updatedAt"`
}
