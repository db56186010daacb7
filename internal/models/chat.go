package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationType - only "private" (two participants) is supported for now.
// Group threads would add a new type here without touching the uniqueness rule.
type ConversationType string

const (
	ConversationTypePrivate ConversationType = "private"
)

// Conversation is a two-party message thread.
//
// PairKey is the normalized "minUserID:maxUserID" of the two participants. The
// unique index on it is what guarantees at most one private conversation per
// unordered user pair - concurrent creates for the same pair collide here and
// the loser retries the lookup.
type Conversation struct {
	ID        string           `gorm:"primaryKey;type:text" json:"id"`
	Type      ConversationType `gorm:"type:text;default:'private';not null" json:"type"`
	PairKey   string           `gorm:"uniqueIndex;type:text;not null" json:"-"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`

	// Relations
	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
	Messages     []Message                 `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// ConversationParticipant links a user to a conversation.
// Composite primary key keeps the link unique per (conversation, user).
type ConversationParticipant struct {
	ConversationID string    `gorm:"primaryKey;type:text" json:"conversationId"`
	UserID         string    `gorm:"primaryKey;type:text" json:"userId"`
	JoinedAt       time.Time `json:"joinedAt"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// MessageStatus - delivered/read are reserved; every message starts as sent.
const (
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusRead      = "read"
)

// Message is an immutable entry in a conversation. Ordering is
// (created_at ASC, id ASC) and is never reshuffled after insert.
type Message struct {
	ID             string `gorm:"primaryKey;type:text" json:"id"`
	ConversationID string `gorm:"index;type:text;not null" json:"conversationId"`
	SenderID       string `gorm:"index;type:text;not null" json:"senderId"`
	Content        string `gorm:"type:text;not null" json:"content"`
	Status         string `gorm:"type:text;default:'sent';not null" json:"status"`

	IsRead bool       `gorm:"default:false" json:"isRead"`
	ReadAt *time.Time `json:"readAt"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	// Relations
	Sender User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}
