package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/BradenHooton/littlespace/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapPostgresError translates driver errors into model sentinels. Anything
// unrecognised is treated as the store being unavailable.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return models.ErrConflict
		case "23503": // foreign_key_violation
			return &models.ValidationError{Message: "referenced record does not exist"}
		case "23502": // not_null_violation
			return &models.ValidationError{Field: pgErr.ColumnName, Message: "this field is required"}
		case "23514", "22P02": // check_violation, invalid_text_representation
			return &models.ValidationError{Field: pgErr.ColumnName, Message: "invalid value"}
		}
	}

	return fmt.Errorf("%w: %w", models.ErrStorageUnavailable, err)
}

func (db *DB) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return MapPostgresError(err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = MapPostgresError(tx.Commit(ctx))
		}
	}()

	err = fn(tx)
	return err
}
