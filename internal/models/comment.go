package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment represents a comment on a post
type Comment struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PostID string `gorm:"not null;index" json:"post_id"`
	Post   Post   `gorm:"foreignKey:PostID" json:"-"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	// Content has passed every text moderation stage before the row exists
	Content string `gorm:"type:text;not null" json:"content"`

	// Threading - parent_id is null for top-level comments, one level deep
	ParentID *string    `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Parent   *Comment   `gorm:"foreignKey:ParentID" json:"-"`
	Replies  []*Comment `gorm:"foreignKey:ParentID" json:"replies,omitempty"`

	// Anonymity. AnonOrdinal is the per-post number assigned to the author
	// when IsAnonymous is set; zero otherwise.
	IsAnonymous bool `gorm:"default:false" json:"is_anonymous"`
	AnonOrdinal int  `gorm:"default:0" json:"anon_ordinal,omitempty"`

	LikeCount int `gorm:"default:0" json:"like_count"`

	// Moderation
	IsDeleted bool `gorm:"default:false" json:"is_deleted"` // soft delete for "comment removed"

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
