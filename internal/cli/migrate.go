package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BradenHooton/littlespace/internal/config"
	"github.com/BradenHooton/littlespace/internal/database"
	pkglogger "github.com/BradenHooton/littlespace/pkg/logger"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd, func(db *database.DB) error {
			if err := db.MigrateUp(cmd.Context()); err != nil {
				return err
			}
			return printVersion(cmd, db)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd, func(db *database.DB) error {
			if err := db.MigrateDown(cmd.Context()); err != nil {
				return err
			}
			return printVersion(cmd, db)
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd, func(db *database.DB) error {
			return printVersion(cmd, db)
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}

// withDatabase opens a pool from the DB_* settings only
func withDatabase(cmd *cobra.Command, fn func(db *database.DB) error) error {
	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := pkglogger.New(os.Stderr, os.Getenv("LOG_LEVEL"))
	db, err := database.NewConnection(cmd.Context(), dbCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	logger.Debug("connected", slog.String("database", dbCfg.Name))
	return fn(db)
}

func printVersion(cmd *cobra.Command, db *database.DB) error {
	version, err := db.MigrationVersion(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", version)
	return nil
}
