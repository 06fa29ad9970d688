package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"ms-invitations/internal/database"
	"ms-invitations/internal/database/migrations"
)

var migrationsDir string

func init() {
	migrateCmd.PersistentFlags().StringVar(&migrationsDir, "dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateToCmd, migrateVersionCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or inspect the Postgres schema migrations",
	Long: `Apply or inspect the Postgres schema migrations.

Examples:
  # Apply every pending migration
  eventctl migrate up

  # Roll back to version 1
  eventctl migrate to 1`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd.Context(), func(r *migrations.Runner) error {
			return r.MigrateUp()
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd.Context(), func(r *migrations.Runner) error {
			return r.MigrateDown()
		})
	},
}

var migrateToCmd = &cobra.Command{
	Use:   "to <version>",
	Short: "Migrate up or down to a specific version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		return withRunner(cmd.Context(), func(r *migrations.Runner) error {
			return r.MigrateTo(uint(v))
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd.Context(), func(r *migrations.Runner) error {
			v, dirty, err := r.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
			return nil
		})
	},
}

func withRunner(ctx context.Context, fn func(r *migrations.Runner) error) error {
	if cfg.Database.Driver == "sqlite" {
		return fmt.Errorf("migrations only apply to postgres, DB_DRIVER is %q", cfg.Database.Driver)
	}

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}

	dir := migrationsDir
	if dir == "" {
		dir = cfg.Database.MigrationsDir
	}
	runner := migrations.NewRunner(bunDB, dir, log)
	// Closing the runner also closes bunDB's pool.
	defer runner.Close()

	return fn(runner)
}
