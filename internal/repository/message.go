package repository

import (
	"context"

	"pulse/internal/changefeed"
	"pulse/internal/models"
	"pulse/internal/observability"

	"gorm.io/gorm"
)

// MessageRepository stores direct messages as a flat table; conversations are derived on read.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	ListInvolving(ctx context.Context, userID string) ([]*models.Message, error)
	ListBetween(ctx context.Context, userID, counterpartyID string) ([]*models.Message, error)
	MarkRead(ctx context.Context, receiverID, senderID string) (int64, error)
}

type messageRepository struct {
	db  *gorm.DB
	pub changefeed.Publisher
	log *observability.RepoLogger
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *gorm.DB, pub changefeed.Publisher) MessageRepository {
	return &messageRepository{db: db, pub: pub, log: observability.NewRepoLogger("messages")}
}

func messageChange(op, senderID, receiverID string) models.Change {
	return models.Change{
		Entity: models.EntityMessages,
		Op:     op,
		Fields: map[string]string{"sender_id": senderID, "receiver_id": receiverID},
	}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return translateError(ctx, r.log, "create", "Profile", msg.ReceiverID, err)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"message_id": msg.ID, "sender_id": msg.SenderID})
	changefeed.PublishBestEffort(ctx, r.pub, messageChange(models.OpInsert, msg.SenderID, msg.ReceiverID))
	return nil
}

// ListInvolving returns every message sent or received by userID, newest first.
func (r *messageRepository) ListInvolving(ctx context.Context, userID string) ([]*models.Message, error) {
	defer observability.TrackQuery("list_involving", "messages")()

	var msgs []*models.Message
	err := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at desc").
		Find(&msgs).Error
	if err != nil {
		return nil, translateError(ctx, r.log, "list_involving", "Message", nil, err)
	}
	return msgs, nil
}

// ListBetween returns the messages exchanged by the two profiles, oldest first.
func (r *messageRepository) ListBetween(ctx context.Context, userID, counterpartyID string) ([]*models.Message, error) {
	var msgs []*models.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, counterpartyID, counterpartyID, userID).
		Order("created_at asc").
		Find(&msgs).Error
	if err != nil {
		return nil, translateError(ctx, r.log, "list_between", "Message", nil, err)
	}
	return msgs, nil
}

// MarkRead marks the unread messages from senderID to receiverID as read.
func (r *messageRepository) MarkRead(ctx context.Context, receiverID, senderID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", receiverID, senderID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, translateError(ctx, r.log, "mark_read", "Message", nil, result.Error)
	}
	if result.RowsAffected > 0 {
		r.log.LogUpdate(ctx, map[string]interface{}{"receiver_id": receiverID, "sender_id": senderID, "rows": result.RowsAffected})
		changefeed.PublishBestEffort(ctx, r.pub, messageChange(models.OpUpdate, senderID, receiverID))
	}
	return result.RowsAffected, nil
}
