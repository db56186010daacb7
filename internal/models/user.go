package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID        string         `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string `json:"displayName"`
	Email       string `gorm:"uniqueIndex" json:"email"`
	Image       string `json:"image"`
	Bio         string `json:"bio"`

	Role Role `gorm:"type:text;default:'USER'" json:"role"`

	// Identity verification status (the camera-based flow itself lives in a
	// separate service; we only track the outcome)
	FaceVerified bool `gorm:"default:false" json:"faceVerified"`

	Password string `json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
