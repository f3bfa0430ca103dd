package changefeed

import (
	"context"
	"fmt"
	"time"

	"pulse/internal/models"
	"pulse/internal/observability"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const listenRetryDelay = time.Second

// PostgresFeed carries changes over Postgres LISTEN/NOTIFY on a single channel.
type PostgresFeed struct {
	pool    *pgxpool.Pool
	channel string
}

// NewPostgresPool opens the pgx pool used by the feed.
func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse change feed dsn: %w", err)
	}
	// one connection is parked in LISTEN, the rest serve pg_notify
	cfg.MaxConns = 4
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect change feed: %w", err)
	}
	return pool, nil
}

// NewPostgresFeed creates a feed on channel using pool.
func NewPostgresFeed(pool *pgxpool.Pool, channel string) *PostgresFeed {
	return &PostgresFeed{pool: pool, channel: channel}
}

// Publish notifies listeners of change.
func (f *PostgresFeed) Publish(ctx context.Context, change models.Change) error {
	payload, err := encodeChange(change)
	if err != nil {
		return err
	}
	if _, err := f.pool.Exec(ctx, "SELECT pg_notify($1, $2)", f.channel, string(payload)); err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}
	return nil
}

// Start parks a pooled connection in LISTEN and calls emit for each notification.
// A broken connection is replaced after a short delay.
func (f *PostgresFeed) Start(ctx context.Context, emit func(models.Change)) error {
	conn, err := f.listen(ctx)
	if err != nil {
		return err
	}

	go func() {
		for {
			err := f.consume(ctx, conn, emit)
			// a listening connection must not go back into the pool
			_ = conn.Conn().Close(context.Background())
			conn.Release()
			if ctx.Err() != nil {
				return
			}
			observability.LogAsyncOperationError(ctx, "changefeed.postgres", err, map[string]interface{}{"channel": f.channel})

			for {
				select {
				case <-ctx.Done():
					return
				case <-time.After(listenRetryDelay):
				}
				if conn, err = f.listen(ctx); err == nil {
					break
				}
				observability.LogAsyncOperationError(ctx, "changefeed.postgres.listen", err, nil)
			}
		}
	}()

	return nil
}

func (f *PostgresFeed) listen(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, listenStatement(f.channel)); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen on %s: %w", f.channel, err)
	}
	return conn, nil
}

func (f *PostgresFeed) consume(ctx context.Context, conn *pgxpool.Conn, emit func(models.Change)) error {
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		deliver("postgres", n.Payload, emit)
	}
}

// Close releases the pool.
func (f *PostgresFeed) Close() {
	f.pool.Close()
}

func listenStatement(channel string) string {
	return "LISTEN " + pgx.Identifier{channel}.Sanitize()
}
