package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/codr1/dashprefs/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the local settings database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(database *db.DB) error {
			if err := database.MigrateUp(); err != nil {
				return err
			}
			log.Info().Str("database", cfg.Database.Filename).Msg("Migrations applied")
			return printVersion(cmd, database)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all migrations, dropping stored settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(database *db.DB) error {
			if err := database.MigrateDown(); err != nil {
				return err
			}
			log.Info().Str("database", cfg.Database.Filename).Msg("Migrations rolled back")
			return printVersion(cmd, database)
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(database *db.DB) error {
			return printVersion(cmd, database)
		})
	},
}

func withDatabase(fn func(*db.DB) error) error {
	database, err := db.OpenFromConfig(cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(database)
}

func printVersion(cmd *cobra.Command, database *db.DB) error {
	version, dirty, err := database.MigrationVersion()
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(cmd.OutOrStdout(), map[string]any{"version": version, "dirty": dirty})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schema version: %d (dirty: %t)\n", version, dirty)
	return nil
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}
