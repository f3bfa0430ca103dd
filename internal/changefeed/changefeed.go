// Package changefeed carries row-level change events between the processes that write the
// interaction log and the live change relays that watch it.
package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"pulse/internal/models"
	"pulse/internal/observability"
)

// Publisher announces a committed change.
type Publisher interface {
	Publish(ctx context.Context, change models.Change) error
}

// Source delivers changes to emit until ctx is cancelled. Start returns once the
// source is listening; delivery happens on a background goroutine.
type Source interface {
	Start(ctx context.Context, emit func(models.Change)) error
}

// Discard is a Publisher that drops every change.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, models.Change) error { return nil }

// PublishBestEffort publishes change and logs instead of failing the caller: the write it
// describes has already been committed.
func PublishBestEffort(ctx context.Context, pub Publisher, change models.Change) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, change); err != nil {
		observability.Log(ctx).WithError(err).WithField("entity", change.Entity).Warn("failed to publish change")
	}
}

func encodeChange(change models.Change) ([]byte, error) {
	b, err := json.Marshal(change)
	if err != nil {
		return nil, fmt.Errorf("marshal change: %w", err)
	}
	return b, nil
}

func decodeChange(payload string) (models.Change, error) {
	var change models.Change
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		return models.Change{}, fmt.Errorf("unmarshal change: %w", err)
	}
	if change.Entity == "" {
		return models.Change{}, fmt.Errorf("change without entity: %q", payload)
	}
	return change, nil
}

// deliver decodes payload and hands it to emit, surviving a panicking consumer.
func deliver(source, payload string, emit func(models.Change)) {
	defer func() {
		if r := recover(); r != nil {
			observability.GlobalLogger.Errorf("PANIC in %s change consumer: %v\n%s", source, r, debug.Stack())
		}
	}()
	change, err := decodeChange(payload)
	if err != nil {
		observability.GlobalLogger.WithError(err).WithField("source", source).Warn("dropping malformed change")
		return
	}
	emit(change)
}
