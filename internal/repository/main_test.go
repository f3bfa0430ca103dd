package repository

import (
	"context"
	"sync"
	"testing"

	"pulse/internal/models"
	"pulse/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// recordingPublisher captures the changes a repository announces.
type recordingPublisher struct {
	mu      sync.Mutex
	changes []models.Change
}

func (p *recordingPublisher) Publish(_ context.Context, c models.Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
	return nil
}

func (p *recordingPublisher) all() []models.Change {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Change(nil), p.changes...)
}

func setupDB(t *testing.T) (*gorm.DB, *testutil.Fixtures, *recordingPublisher) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	return db, testutil.NewFixtures(t, db), &recordingPublisher{}
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}
