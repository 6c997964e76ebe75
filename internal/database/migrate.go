package database

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

func init() {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		panic(err)
	}
}

// MigrateUp applies all pending migrations
func (db *DB) MigrateUp(ctx context.Context) error {
	sqlDB := db.SQLDB()
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migrate up failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration
func (db *DB) MigrateDown(ctx context.Context) error {
	sqlDB := db.SQLDB()
	defer sqlDB.Close()

	if err := goose.DownContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migrate down failed: %w", err)
	}
	return nil
}

// MigrationVersion reports the currently applied schema version
func (db *DB) MigrationVersion(ctx context.Context) (int64, error) {
	sqlDB := db.SQLDB()
	defer sqlDB.Close()

	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return 0, fmt.Errorf("failed to read migration version: %w", err)
	}
	if db.logger != nil {
		db.logger.Debug("migration version", slog.Int64("version", version))
	}
	return version, nil
}
