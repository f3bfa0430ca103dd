// Package models contains the persisted entities of the interaction log and the errors shared across layers.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is the public identity of a user. It is owned by the identity provider and only read here.
type Profile struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	FullName  string    `json:"full_name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Bio       string    `gorm:"type:text" json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns an id to profiles created by seeding and tests.
func (p *Profile) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ProfileStats holds the relationship counters of a profile page.
type ProfileStats struct {
	Followers   int64 `json:"followers"`
	Following   int64 `json:"following"`
	Posts       int64 `json:"posts"`
	IsFollowing bool  `json:"is_following"`
}
