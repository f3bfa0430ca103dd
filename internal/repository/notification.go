package repository

import (
	"context"

	"pulse/internal/changefeed"
	"pulse/internal/models"
	"pulse/internal/observability"

	"gorm.io/gorm"
)

// NotificationRepository stores the per-recipient notification inbox.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForRecipient(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
}

type notificationRepository struct {
	db  *gorm.DB
	pub changefeed.Publisher
	log *observability.RepoLogger
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB, pub changefeed.Publisher) NotificationRepository {
	return &notificationRepository{db: db, pub: pub, log: observability.NewRepoLogger("notifications")}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return translateError(ctx, r.log, "create", "Notification", n.ID, err)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"notification_id": n.ID, "user_id": n.UserID, "kind": n.Kind})
	changefeed.PublishBestEffort(ctx, r.pub, models.Change{
		Entity: models.EntityNotifications,
		Op:     models.OpInsert,
		Fields: map[string]string{"id": n.ID, "user_id": n.UserID},
	})
	return nil
}

// ListForRecipient returns the newest notifications of userID with their actor.
func (r *notificationRepository) ListForRecipient(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	var out []*models.Notification
	err := r.db.WithContext(ctx).
		Preload("Actor").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, translateError(ctx, r.log, "list", "Notification", nil, err)
	}
	return out, nil
}

// MarkAllRead flips every unread notification of userID to read. Read rows are untouched.
func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, translateError(ctx, r.log, "mark_read", "Notification", nil, result.Error)
	}
	if result.RowsAffected > 0 {
		r.log.LogUpdate(ctx, map[string]interface{}{"user_id": userID, "rows": result.RowsAffected})
		changefeed.PublishBestEffort(ctx, r.pub, models.Change{
			Entity: models.EntityNotifications,
			Op:     models.OpUpdate,
			Fields: map[string]string{"user_id": userID},
		})
	}
	return result.RowsAffected, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, translateError(ctx, r.log, "count_unread", "Notification", nil, err)
	}
	return count, nil
}
