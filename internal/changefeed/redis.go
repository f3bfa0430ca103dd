package changefeed

import (
	"context"
	"fmt"

	"pulse/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisFeed publishes changes on one Redis channel per entity and consumes them with a
// pattern subscription, so several server processes share one live view of the log.
type RedisFeed struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisFeed creates a feed whose channels are named "<prefix>:<entity>".
func NewRedisFeed(rdb *redis.Client, prefix string) *RedisFeed {
	return &RedisFeed{rdb: rdb, prefix: prefix}
}

// Channel derives the Redis channel name for an entity.
func (f *RedisFeed) Channel(entity string) string {
	return f.prefix + ":" + entity
}

// Publish sends change to its entity channel.
func (f *RedisFeed) Publish(ctx context.Context, change models.Change) error {
	if f.rdb == nil {
		return nil
	}
	payload, err := encodeChange(change)
	if err != nil {
		return err
	}
	return f.rdb.Publish(ctx, f.Channel(change.Entity), payload).Err()
}

// Start subscribes to every entity channel and calls emit for each incoming change.
func (f *RedisFeed) Start(ctx context.Context, emit func(models.Change)) error {
	if f.rdb == nil {
		return nil
	}
	sub := f.rdb.PSubscribe(ctx, f.Channel("*"))
	// wait for the subscription to be confirmed so no change published after Start is missed
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe to change feed: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				deliver("redis", msg.Payload, emit)
			}
		}
	}()

	return nil
}
