package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a member of the campus community
type User struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string `gorm:"not null" json:"display_name"`
	Bio         string `gorm:"type:text" json:"bio"`

	// Native auth fields
	PasswordHash *string `gorm:"type:text" json:"-"`

	// Campus profile
	Faculty    string `json:"faculty"`
	StudyYear  int    `json:"study_year"`
	AvatarURL  string `json:"avatar_url"`
	AvatarKey  string `json:"-"` // object storage key behind AvatarURL
	IsAdmin    bool   `gorm:"default:false" json:"is_admin"`
	IsBanned   bool   `gorm:"default:false" json:"is_banned"`
	BannedAt   *time.Time `json:"-"`
	BanReason  string     `gorm:"type:text" json:"-"`

	// Activity tracking
	LastActiveAt *time.Time `json:"last_active_at"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
