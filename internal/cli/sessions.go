package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BradenHooton/littlespace/internal/auth"
	"github.com/BradenHooton/littlespace/internal/background"
	"github.com/BradenHooton/littlespace/internal/config"
	"github.com/BradenHooton/littlespace/internal/database"
	"github.com/BradenHooton/littlespace/internal/repositories"
	pkglogger "github.com/BradenHooton/littlespace/pkg/logger"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Session maintenance",
}

var sessionsSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired sessions once and exit",
	Long: `Delete every session whose expiry is at or before now.

Useful from cron when the server runs with SESSION_EXPIRY_POLICY=keep.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd, func(db *database.DB) error {
			logger := pkglogger.New(os.Stderr, os.Getenv("LOG_LEVEL"))
			store := auth.NewSessionStore(repositories.NewSessionRepository(db), 0, config.ExpiryPolicySweep, logger)

			sweeper := background.NewSessionSweeper(store, nil, logger, 0)
			purged := sweeper.Sweep(cmd.Context())

			logger.Debug("sweep finished", slog.Int64("purged", purged))
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired sessions\n", purged)
			return nil
		})
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsSweepCmd)
}
