// Package testutil provides shared test databases and fixtures.
package testutil

import (
	"testing"
	"time"

	"pulse/internal/database"
	"pulse/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB returns a migrated, private in-memory database that lives for the duration of t.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to a memory database must be the same one
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Fixtures creates rows directly through gorm, bypassing repositories.
type Fixtures struct {
	t     *testing.T
	db    *gorm.DB
	clock time.Time
}

// NewFixtures returns a fixture builder whose rows get strictly increasing timestamps.
func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db, clock: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

// Tick returns the next timestamp.
func (f *Fixtures) Tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

// Profile creates a profile with the given username.
func (f *Fixtures) Profile(username string) *models.Profile {
	f.t.Helper()
	p := &models.Profile{Username: username, FullName: username + " Example", CreatedAt: f.Tick()}
	require.NoError(f.t, f.db.Create(p).Error)
	return p
}

// Post creates a post by author.
func (f *Fixtures) Post(author *models.Profile, content string) *models.Post {
	f.t.Helper()
	p := &models.Post{UserID: author.ID, Content: content, CreatedAt: f.Tick()}
	require.NoError(f.t, f.db.Create(p).Error)
	return p
}

// Like records that user liked post.
func (f *Fixtures) Like(user *models.Profile, post *models.Post) *models.Like {
	f.t.Helper()
	l := &models.Like{UserID: user.ID, PostID: post.ID, CreatedAt: f.Tick()}
	require.NoError(f.t, f.db.Create(l).Error)
	return l
}

// Comment records a comment by user on post.
func (f *Fixtures) Comment(user *models.Profile, post *models.Post, content string) *models.Comment {
	f.t.Helper()
	c := &models.Comment{UserID: user.ID, PostID: post.ID, Content: content, CreatedAt: f.Tick()}
	require.NoError(f.t, f.db.Create(c).Error)
	return c
}

// Follow records that follower follows followee.
func (f *Fixtures) Follow(follower, followee *models.Profile) *models.Follow {
	f.t.Helper()
	fl := &models.Follow{FollowerID: follower.ID, FolloweeID: followee.ID, CreatedAt: f.Tick()}
	require.NoError(f.t, f.db.Create(fl).Error)
	return fl
}

// Message records a direct message from sender to receiver.
func (f *Fixtures) Message(sender, receiver *models.Profile, content string) *models.Message {
	f.t.Helper()
	m := &models.Message{SenderID: sender.ID, ReceiverID: receiver.ID, Content: content, CreatedAt: f.Tick()}
	require.NoError(f.t, f.db.Create(m).Error)
	return m
}
