package cache

import (
	"context"
	"time"

	"pulse/internal/observability"
)

// ViewStore keeps the last view successfully served to each viewer so that reads can
// degrade to it when the store is unavailable.
type ViewStore struct {
	ttl time.Duration
}

// NewViewStore returns a store whose entries expire after ttl.
func NewViewStore(ttl time.Duration) *ViewStore {
	return &ViewStore{ttl: ttl}
}

// Remember records v as the last-known state of a view. Failures are logged only.
func (s *ViewStore) Remember(ctx context.Context, view, viewerID, param string, v any) {
	if err := SetJSON(ctx, ViewKey(view, viewerID, param), v, s.ttl); err != nil {
		observability.Log(ctx).WithError(err).WithField("view", view).Warn("failed to remember view")
	}
}

// Recall loads the last-known state of a view into dest and reports whether one existed.
func (s *ViewStore) Recall(ctx context.Context, view, viewerID, param string, dest any) bool {
	found, err := GetJSON(ctx, ViewKey(view, viewerID, param), dest)
	if err != nil {
		observability.Log(ctx).WithError(err).WithField("view", view).Warn("failed to recall view")
		return false
	}
	return found
}
