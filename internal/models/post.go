package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a piece of authored content.
type Post struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Author    *Profile  `gorm:"foreignKey:UserID" json:"author,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	MediaURL  string    `json:"media_url,omitempty"`
	MediaType string    `json:"media_type,omitempty"`
	Likes     []Like    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Comments  []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Derived per viewer; never persisted.
	LikeCount    int  `gorm:"-" json:"like_count"`
	CommentCount int  `gorm:"-" json:"comment_count"`
	IsLiked      bool `gorm:"-" json:"is_liked"`
}

// BeforeCreate assigns the post id.
func (p *Post) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Like is a user's like on a post. The combination of UserID and PostID is unique.
type Like struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_likes_user_post" json:"user_id"`
	PostID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_likes_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns the like id.
func (l *Like) BeforeCreate(*gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// Comment is a reply to a post.
type Comment struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Author    *Profile  `gorm:"foreignKey:UserID" json:"author,omitempty"`
	PostID    string    `gorm:"type:uuid;not null;index" json:"post_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns the comment id.
func (c *Comment) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
