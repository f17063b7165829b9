// Package seed inserts the default factor tables and fitting mappings a
// fresh installation starts from. Imports may replace them later.
package seed

import (
	"database/sql"
	"fmt"

	"github.com/CMDAEW/isokalk/internal/catalog"
)

const pipeRunComponent = "Rohrleitung"

var defaultComponents = []catalog.Component{
	{Name: pipeRunComponent, Kind: catalog.KindPipeRun},
}

var defaultFactors = []catalog.Factor{
	{Category: catalog.FactorActivity, Name: "Montage", Value: 1.0},
	{Category: catalog.FactorActivity, Name: "Demontage", Value: 0.4},
	{Category: catalog.FactorSurcharge, Name: "Erschwernis", Value: 1.1},
	{Category: catalog.FactorSurcharge, Name: "Höhenzuschlag", Value: 1.2},
	{Category: catalog.FactorSurcharge, Name: "Nachtarbeit", Value: 1.25},
	{Category: catalog.FactorSurcharge, Name: "Kleinmenge", Value: 0.95},
	{Category: catalog.FactorSurcharge, Name: "MwSt", Value: 1.19},
	{Category: catalog.FactorFittingMarkup, Name: "Bogen", Value: 1.5},
	{Category: catalog.FactorFittingMarkup, Name: "T-Stück", Value: 1.8},
	{Category: catalog.FactorFittingMarkup, Name: "Ventil", Value: 2.0},
	{Category: catalog.FactorFittingMarkup, Name: "Flansch", Value: 1.6},
}

var defaultFittings = []catalog.Fitting{
	{Name: "Bogen 90°", BaseComponent: pipeRunComponent, FactorName: "Bogen"},
	{Name: "T-Stück", BaseComponent: pipeRunComponent, FactorName: "T-Stück"},
	{Name: "Absperrventil", BaseComponent: pipeRunComponent, FactorName: "Ventil"},
	{Name: "Flansch", BaseComponent: pipeRunComponent, FactorName: "Flansch"},
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run executes the startup seed in an idempotent way.
func Run(db *sql.DB) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	for _, c := range defaultComponents {
		if err := ensureComponent(tx, c, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}
	for _, f := range defaultFactors {
		if err := ensureFactor(tx, f, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}
	for _, f := range defaultFittings {
		if err := ensureFitting(tx, f, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureComponent(tx *sql.Tx, c catalog.Component, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM catalog_components WHERE name = ? LIMIT 1)`, c.Name).Scan(&exists); err != nil {
		return fmt.Errorf("check component existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`INSERT INTO catalog_components (name, kind) VALUES (?, ?)`, c.Name, string(c.Kind)); err != nil {
		return fmt.Errorf("insert default component %q: %w", c.Name, err)
	}
	stats.Inserts++
	return nil
}

func ensureFactor(tx *sql.Tx, f catalog.Factor, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`
		SELECT EXISTS(
			SELECT 1
			FROM factor_entries
			WHERE category = ? AND name = ?
			LIMIT 1
		)
	`, string(f.Category), f.Name).Scan(&exists); err != nil {
		return fmt.Errorf("check factor existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO factor_entries (category, name, factor)
		VALUES (?, ?, ?)
	`, string(f.Category), f.Name, f.Value); err != nil {
		return fmt.Errorf("insert default factor %q: %w", f.Name, err)
	}
	stats.Inserts++
	return nil
}

func ensureFitting(tx *sql.Tx, f catalog.Fitting, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM fitting_mappings WHERE fitting = ? LIMIT 1)`, f.Name).Scan(&exists); err != nil {
		return fmt.Errorf("check fitting existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO fitting_mappings (fitting, base_component, factor_name)
		VALUES (?, ?, ?)
	`, f.Name, f.BaseComponent, f.FactorName); err != nil {
		return fmt.Errorf("insert default fitting %q: %w", f.Name, err)
	}
	stats.Inserts++
	return nil
}
