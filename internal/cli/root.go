package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd *cobra.Command

func init() {
	rootCmd = &cobra.Command{
		Use:   "littlespace",
		Short: "littlespace - shared task list API",
		Long: `littlespace serves the task list shared by an admin and a restricted user.

Sign-in goes through Discord; sessions are opaque bearer tokens stored in Postgres.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// Execute runs the root command. With no subcommand the API server starts.
func Execute(version string) error {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.RunE = serveCmd.RunE

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
