package repository

import (
	"context"
	"errors"

	"pulse/internal/models"
	"pulse/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the repositories translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// translateError maps a gorm/driver error into the application taxonomy and logs it.
// resource and id name the row for not-found and foreign-key errors.
func translateError(ctx context.Context, log *observability.RepoLogger, operation, resource string, id interface{}, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return models.NewConstraintViolation(pgErr.Message)
		case pgForeignKeyViolation:
			return models.NewNotFoundError(resource, id)
		}
	}

	log.LogError(ctx, err, operation)
	return models.NewStoreError(operation, err)
}
