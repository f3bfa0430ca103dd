// Package fanout derives notification rows from committed interactions.
//
// Each method is called once, right after the primary write it describes has committed
// and only when that write actually created a row. Failures are reported as
// NOTIFICATION_DELIVERY_FAILED and never undo the primary write.
package fanout

import (
	"context"
	"errors"
	"fmt"

	"pulse/internal/models"
	"pulse/internal/observability"
)

// NotificationWriter appends notification rows.
type NotificationWriter interface {
	Create(ctx context.Context, n *models.Notification) error
}

// ProfileReader resolves the actor of an interaction.
type ProfileReader interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

// Fanout writes at most one notification per interaction.
type Fanout struct {
	notifications NotificationWriter
	profiles      ProfileReader
}

// New creates a Fanout.
func New(notifications NotificationWriter, profiles ProfileReader) *Fanout {
	return &Fanout{notifications: notifications, profiles: profiles}
}

// LikeCreated notifies the post author that actorID liked post.
func (f *Fanout) LikeCreated(ctx context.Context, actorID string, post *models.Post) (*models.Notification, error) {
	if post == nil {
		return nil, f.fail(ctx, models.NotificationLike, errors.New("post is required"))
	}
	postID := post.ID
	return f.emit(ctx, models.NotificationLike, actorID, post.UserID, &postID)
}

// LikeRemoved emits nothing: notifications record past events and are never retracted.
func (f *Fanout) LikeRemoved(context.Context, string, *models.Post) (*models.Notification, error) {
	return nil, nil
}

// CommentCreated notifies the post author that actorID commented on post.
func (f *Fanout) CommentCreated(ctx context.Context, actorID string, post *models.Post) (*models.Notification, error) {
	if post == nil {
		return nil, f.fail(ctx, models.NotificationComment, errors.New("post is required"))
	}
	postID := post.ID
	return f.emit(ctx, models.NotificationComment, actorID, post.UserID, &postID)
}

// FollowCreated notifies followeeID that followerID started following them.
func (f *Fanout) FollowCreated(ctx context.Context, followerID, followeeID string) (*models.Notification, error) {
	return f.emit(ctx, models.NotificationFollow, followerID, followeeID, nil)
}

func (f *Fanout) emit(ctx context.Context, kind models.NotificationKind, actorID, recipientID string, postID *string) (*models.Notification, error) {
	if actorID == recipientID {
		return nil, nil
	}

	actor, err := f.profiles.GetByID(ctx, actorID)
	if err != nil {
		return nil, f.fail(ctx, kind, fmt.Errorf("resolve actor %s: %w", actorID, err))
	}

	n := &models.Notification{
		UserID:        recipientID,
		Kind:          kind,
		Content:       Render(kind, actor.Username),
		RelatedUserID: actorID,
		RelatedPostID: postID,
	}
	if err := f.notifications.Create(ctx, n); err != nil {
		return nil, f.fail(ctx, kind, err)
	}

	observability.NotificationsEmitted.WithLabelValues(string(kind)).Inc()
	return n, nil
}

func (f *Fanout) fail(ctx context.Context, kind models.NotificationKind, err error) error {
	observability.NotificationFailures.WithLabelValues(string(kind)).Inc()
	observability.Log(ctx).WithError(err).WithField("kind", kind).Warn("notification fan-out failed")
	return models.NewDeliveryError(kind, err)
}

// Render produces the text shown for a notification.
func Render(kind models.NotificationKind, username string) string {
	switch kind {
	case models.NotificationLike:
		return username + " liked your post"
	case models.NotificationComment:
		return username + " commented on your post"
	case models.NotificationFollow:
		return username + " started following you"
	default:
		return username + " interacted with you"
	}
}
