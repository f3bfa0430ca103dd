package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a direct message between two profiles.
type Message struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	SenderID   string    `gorm:"type:uuid;not null;index" json:"sender_id"`
	ReceiverID string    `gorm:"type:uuid;not null;index" json:"receiver_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsRead     bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns the message id.
func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Counterparty returns the endpoint of m that is not viewerID.
func (m *Message) Counterparty(viewerID string) string {
	if m.SenderID == viewerID {
		return m.ReceiverID
	}
	return m.SenderID
}
