// Package service implements the user-facing actions and read views on top of the
// repositories, the aggregation engine and the notification fan-out.
package service

import (
	"context"

	"pulse/internal/cache"
	"pulse/internal/models"
	"pulse/internal/observability"
)

const maxContentLen = 5000

// Notifier is the notification fan-out seen by the action services.
type Notifier interface {
	LikeCreated(ctx context.Context, actorID string, post *models.Post) (*models.Notification, error)
	LikeRemoved(ctx context.Context, actorID string, post *models.Post) (*models.Notification, error)
	CommentCreated(ctx context.Context, actorID string, post *models.Post) (*models.Notification, error)
	FollowCreated(ctx context.Context, followerID, followeeID string) (*models.Notification, error)
}

// ViewResult is what a read view serves. Stale is set when the store could not be read
// and Data is the last-known view or an empty one.
type ViewResult[T any] struct {
	Data  T    `json:"data"`
	Stale bool `json:"stale"`
}

// readView runs load and remembers its result. When load fails with STORE_UNAVAILABLE the
// last-known view (or empty) is served as stale instead; other errors are returned.
func readView[T any](ctx context.Context, views *cache.ViewStore, view, viewerID, param string, empty T, load func() (T, error)) (ViewResult[T], error) {
	data, err := load()
	if err == nil {
		if views != nil {
			views.Remember(ctx, view, viewerID, param, data)
		}
		return ViewResult[T]{Data: data}, nil
	}
	if !models.HasCode(err, models.CodeStoreUnavailable) {
		return ViewResult[T]{}, err
	}

	entry := observability.Log(ctx).WithError(err).WithField("view", view)
	if views != nil {
		var cached T
		if views.Recall(ctx, view, viewerID, param, &cached) {
			observability.ViewFallbacks.WithLabelValues(view, "cache").Inc()
			entry.Warn("store unavailable, serving last-known view")
			return ViewResult[T]{Data: cached, Stale: true}, nil
		}
	}
	observability.ViewFallbacks.WithLabelValues(view, "empty").Inc()
	entry.Warn("store unavailable, serving empty view")
	return ViewResult[T]{Data: empty, Stale: true}, nil
}

// logAggregationErrors reports rows skipped while annotating posts.
func logAggregationErrors(ctx context.Context, errs []error) {
	for _, err := range errs {
		observability.Log(ctx).WithError(err).Warn("skipped malformed reference")
	}
}

// logDeliveryError records a fan-out failure. The primary action has already succeeded.
func logDeliveryError(ctx context.Context, err error, fields map[string]interface{}) {
	if err == nil {
		return
	}
	observability.LogAsyncOperationError(ctx, "notification_fanout", err, fields)
}
