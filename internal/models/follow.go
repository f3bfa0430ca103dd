package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Follow is a directed edge: FollowerID follows FolloweeID. Each ordered pair exists at most once.
type Follow struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	FollowerID string    `gorm:"type:uuid;not null;uniqueIndex:idx_follows_pair" json:"follower_id"`
	FolloweeID string    `gorm:"type:uuid;not null;uniqueIndex:idx_follows_pair;index" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// BeforeCreate assigns the follow id.
func (f *Follow) BeforeCreate(*gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
