// Package cmd provides the CLI commands for isokalk.
package cmd

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CMDAEW/isokalk/internal/config"
	"github.com/CMDAEW/isokalk/internal/db"
	"github.com/CMDAEW/isokalk/internal/logging"
	"github.com/CMDAEW/isokalk/internal/migrations"
)

var (
	dbPath        string
	migrationsDir string
	verbose       bool

	log *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "isokalk",
	Short: "Price pipe insulation work from the catalog",
	Long: `isokalk prices insulation positions against the imported price
catalog and manages the catalog tables themselves.

Examples:
  isokalk import --table prices preise.csv
  isokalk price --component "Rohrleitung" --dn 50 --da 60,3 --size 30 --activity Montage
  isokalk migrate`,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default from ISOKALK_DB_PATH or ./isokalk.db)")
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "migrations", "migrations", "directory containing the schema migrations")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(priceCmd)
	rootCmd.AddCommand(migrateCmd)
}

func initLogging() {
	cfg := config.Load()
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}

	var err error
	log, err = logging.New(level, cfg.IsDev())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		log = zap.NewNop()
	}
}

// openDatabase opens the configured database and brings its schema up to
// date. The --db flag wins over the environment.
func openDatabase() (*sql.DB, error) {
	path := dbPath
	if path == "" {
		path = config.Load().DBPath
	}

	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := migrations.Up(database, migrationsDir); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return database, nil
}
