package server

import (
	"context"
	"errors"
	"fmt"

	"pulse/internal/changefeed"
	"pulse/internal/config"
	"pulse/internal/realtime"

	"github.com/redis/go-redis/v9"
)

// ChangeFeed ties the publisher repositories write to with the relay live views read from.
type ChangeFeed struct {
	Publisher changefeed.Publisher
	Relay     *realtime.Relay
	closeFn   func()
}

// LocalChangeFeed keeps changes inside the process: writers publish straight to the relay.
func LocalChangeFeed() *ChangeFeed {
	relay := realtime.NewRelay(nil)
	return &ChangeFeed{Publisher: relay, Relay: relay}
}

// NewChangeFeed builds the feed selected by CHANGE_FEED.
func NewChangeFeed(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (*ChangeFeed, error) {
	switch cfg.ChangeFeed {
	case config.ChangeFeedRedis:
		if redisClient == nil {
			return nil, errors.New("CHANGE_FEED=redis needs a reachable REDIS_URL")
		}
		feed := changefeed.NewRedisFeed(redisClient, cfg.ChangeFeedChannel)
		return &ChangeFeed{Publisher: feed, Relay: realtime.NewRelay(feed)}, nil

	case config.ChangeFeedPostgres:
		pool, err := changefeed.NewPostgresPool(ctx, cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("change feed pool: %w", err)
		}
		feed := changefeed.NewPostgresFeed(pool, cfg.ChangeFeedChannel)
		return &ChangeFeed{Publisher: feed, Relay: realtime.NewRelay(feed), closeFn: feed.Close}, nil

	default:
		return LocalChangeFeed(), nil
	}
}

// Close stops the relay and releases the feed's connections.
func (f *ChangeFeed) Close() {
	f.Relay.Close()
	if f.closeFn != nil {
		f.closeFn()
	}
}
