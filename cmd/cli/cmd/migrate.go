// Package cmd - migrate command
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CMDAEW/isokalk/internal/migrations"
	"github.com/CMDAEW/isokalk/internal/seed"
)

// migrateCmd brings the database schema up to date and seeds the default
// factor tables.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and seed defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		stats, err := seed.Run(database)
		if err != nil {
			return fmt.Errorf("seed defaults: %w", err)
		}

		version, err := migrations.Version(database)
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		fmt.Printf("Schema at version %d, %d default rows seeded\n", version, stats.Inserts)
		return nil
	},
}
