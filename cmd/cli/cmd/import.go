// Package cmd - import command
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CMDAEW/isokalk/internal/loader"
)

var importTable string

// importCmd replaces one catalog table from a record file.
var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Replace a catalog table from a record file",
	Long: `Import semicolon separated records into one catalog table. The
previous content of that table is replaced in a single transaction; rows
that fail validation are skipped and reported.

Tables: prices, factors, fittings, components

Examples:
  isokalk import --table prices preise.csv
  isokalk import --table factors faktoren.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importTable, "table", "t", "prices", "catalog table to replace (prices, factors, fittings, components)")
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open record file: %w", err)
	}
	defer f.Close()

	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	log.Info("importing catalog table",
		zap.String("table", importTable), zap.String("file", path))

	stats, err := loader.Replace(database, loader.Table(importTable), f)
	if err != nil {
		return fmt.Errorf("import %s: %w", importTable, err)
	}

	for _, r := range stats.Rejected {
		row := strings.Join(r.Row, ";")
		fmt.Fprintf(os.Stderr, "line %d rejected: %s (%s)\n", r.Line, r.Reason, row)
	}
	fmt.Printf("Imported %d rows into %s, %d rejected\n", stats.Inserted, importTable, len(stats.Rejected))
	return nil
}
