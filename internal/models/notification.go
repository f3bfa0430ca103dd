package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationKind names the interaction that produced a notification.
type NotificationKind string

const (
	// NotificationLike is produced when someone likes a post.
	NotificationLike NotificationKind = "like"
	// NotificationComment is produced when someone comments on a post.
	NotificationComment NotificationKind = "comment"
	// NotificationFollow is produced when someone starts following a profile.
	NotificationFollow NotificationKind = "follow"
)

// Notification is a per-recipient record of an interaction by another user.
type Notification struct {
	ID            string           `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string           `gorm:"type:uuid;not null;index:idx_notifications_recipient" json:"user_id"`
	Kind          NotificationKind `gorm:"type:varchar(20);not null" json:"kind"`
	Content       string           `gorm:"type:text;not null" json:"content"`
	RelatedUserID string           `gorm:"type:uuid;not null" json:"related_user_id"`
	Actor         *Profile         `gorm:"foreignKey:RelatedUserID" json:"actor,omitempty"`
	RelatedPostID *string          `gorm:"type:uuid" json:"related_post_id,omitempty"`
	IsRead        bool             `gorm:"not null;default:false;index:idx_notifications_recipient" json:"is_read"`
	CreatedAt     time.Time        `json:"created_at"`
}

// BeforeCreate assigns the notification id.
func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
