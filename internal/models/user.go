package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID        string `gorm:"primaryKey;type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Purpose: "access" or "recovery"
type Session struct {
	ID        string `gorm:"primaryKey;type:text"`
	CreatedAt time.Time

	UserID    string    `gorm:"type:text;index;not null"`
	Purpose   string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index"`
	RevokedAt *time.Time
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
