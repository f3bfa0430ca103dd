package service

import (
	"context"

	"pulse/internal/cache"
	"pulse/internal/models"
	"pulse/internal/observability"
	"pulse/internal/realtime"
	"pulse/internal/repository"
)

type NotificationService struct {
	notificationRepo repository.NotificationRepository
	views            *cache.ViewStore
	limit            int
}

func NewNotificationService(notificationRepo repository.NotificationRepository, views *cache.ViewStore, limit int) *NotificationService {
	return &NotificationService{notificationRepo: notificationRepo, views: views, limit: limit}
}

// Inbox returns the viewer's latest notifications, newest first, and marks every unread
// notification of the viewer as read. The returned rows keep the read state they had
// before the inbox was opened.
func (s *NotificationService) Inbox(ctx context.Context, viewerID string) (ViewResult[[]*models.Notification], error) {
	return readView(ctx, s.views, realtime.ViewNotifications, viewerID, "", []*models.Notification{}, func() ([]*models.Notification, error) {
		notifications, err := s.notificationRepo.ListForRecipient(ctx, viewerID, s.limit)
		if err != nil {
			return nil, err
		}
		if _, err := s.notificationRepo.MarkAllRead(ctx, viewerID); err != nil {
			observability.Log(ctx).WithError(err).Warn("failed to mark notifications read")
		}
		return notifications, nil
	})
}

func (s *NotificationService) UnreadCount(ctx context.Context, viewerID string) (int64, error) {
	return s.notificationRepo.CountUnread(ctx, viewerID)
}
