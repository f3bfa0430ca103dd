package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pulse/internal/models"
	"pulse/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	log := observability.NewRepoLogger("test")
	ctx := context.Background()

	assert.NoError(t, translateError(ctx, log, "op", "Post", "p1", nil))

	tests := []struct {
		name string
		err  error
		code string
	}{
		{"record not found", gorm.ErrRecordNotFound, models.CodeNotFound},
		{"wrapped not found", fmt.Errorf("query: %w", gorm.ErrRecordNotFound), models.CodeNotFound},
		{"unique violation", &pgconn.PgError{Code: pgUniqueViolation, Message: "duplicate key"}, models.CodeConstraintViolation},
		{"foreign key violation", &pgconn.PgError{Code: pgForeignKeyViolation}, models.CodeNotFound},
		{"other postgres error", &pgconn.PgError{Code: "57P01"}, models.CodeStoreUnavailable},
		{"connection error", errors.New("dial tcp: connection refused"), models.CodeStoreUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translateError(ctx, log, "op", "Post", "p1", tt.err)
			assert.True(t, models.HasCode(err, tt.code), err.Error())
		})
	}
}
