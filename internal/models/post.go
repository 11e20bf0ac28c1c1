package models

import (
	"time"

	"gorm.io/gorm"
)

// PostType distinguishes the feed surfaces a post can belong to
type PostType string

const (
	PostTypeFeed       PostType = "feed"
	PostTypeLostFound  PostType = "lostfound"
	PostTypeConfession PostType = "confession"
	PostTypeEvent      PostType = "event"
)

// Post represents a feed, lost-and-found, confession or event post.
// Content is optional: an image-only post is valid, but whatever text is
// present has passed every moderation stage before the row exists.
type Post struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Content  string   `gorm:"type:text" json:"content"`
	ImageKey string   `json:"image_key,omitempty"` // object storage key, not a URL
	PostType PostType `gorm:"not null;index" json:"post_type"`
	Category string   `gorm:"index" json:"category,omitempty"`
	Location string   `json:"location,omitempty"`

	IsAnonymous bool `gorm:"default:false" json:"is_anonymous"`

	// Repost support
	RepostedFromPostID *string `gorm:"type:uuid;index" json:"reposted_from_post_id,omitempty"`

	// AnonCounter is the source of per-post anonymous ordinals. It is only
	// ever changed by an atomic UPDATE ... RETURNING, never read-modify-write
	// from application code.
	AnonCounter int `gorm:"default:0" json:"-"`

	CommentCount int `gorm:"default:0" json:"comment_count"`
	VoteScore    int `gorm:"default:0" json:"vote_score"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Poll is an optional attachment for feed posts. One poll per post; creation
// is best-effort after the post row exists.
type Poll struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PostID string `gorm:"not null;uniqueIndex" json:"post_id"`
	Post   Post   `gorm:"foreignKey:PostID" json:"-"`

	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	AllowMultiple bool       `gorm:"default:false" json:"allow_multiple"`

	Options []PollOption `gorm:"foreignKey:PollID" json:"options,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// PollOption is one selectable answer, ordered by Position
type PollOption struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PollID string `gorm:"not null;index" json:"poll_id"`
	Poll   Poll   `gorm:"foreignKey:PollID" json:"-"`

	Text     string `gorm:"not null" json:"text"`
	Position int    `gorm:"not null" json:"position"`

	VoteCount int `gorm:"default:0" json:"vote_count"`

	CreatedAt time.Time `json:"created_at"`
}

// AnonymousAlias maps (post, user) to the stable sequential number shown in
// place of the user's identity on anonymous content for that post. The unique
// index makes first-assignment-wins enforceable by the database instead of
// application code.
type AnonymousAlias struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PostID string `gorm:"not null;uniqueIndex:idx_anon_alias_post_user" json:"post_id"`
	UserID string `gorm:"not null;uniqueIndex:idx_anon_alias_post_user" json:"user_id"`

	Ordinal int `gorm:"not null" json:"ordinal"`

	CreatedAt time.Time `json:"created_at"`
}

// FailedWrite records a swallowed secondary-write failure (e.g. a poll insert
// after a successful post insert) so operators can reconcile instead of
// grepping logs.
type FailedWrite struct {
	ID       string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Kind     string `gorm:"not null;index" json:"kind"` // "poll", "poll_option"
	ParentID string `gorm:"not null;index" json:"parent_id"`
	Detail   string `gorm:"type:text" json:"detail"`

	Reconciled bool `gorm:"default:false" json:"reconciled"`

	CreatedAt time.Time `json:"created_at"`
}
