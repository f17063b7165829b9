package loader

import (
	"database/sql"
	"fmt"
	"io"
)

// Stats reports the outcome of one table import.
type Stats struct {
	Inserted int
	Rejected []RejectedRow
}

// Table names one importable catalog table.
type Table string

const (
	TablePrices     Table = "prices"
	TableFactors    Table = "factors"
	TableFittings   Table = "fittings"
	TableComponents Table = "components"
)

// Replace parses the record stream for the named table and, on a
// successful parse, replaces the table's prior content in one transaction.
// Per-row rejects do not abort the import; a stream-level parse failure
// leaves the table untouched.
func Replace(db *sql.DB, table Table, r io.Reader) (Stats, error) {
	switch table {
	case TablePrices:
		return ReplacePrices(db, r)
	case TableFactors:
		return ReplaceFactors(db, r)
	case TableFittings:
		return ReplaceFittings(db, r)
	case TableComponents:
		return ReplaceComponents(db, r)
	default:
		return Stats{}, fmt.Errorf("unknown import table %q", table)
	}
}

// ReplacePrices imports price records into catalog_entries.
func ReplacePrices(db *sql.DB, r io.Reader) (Stats, error) {
	// Parse everything before touching the database so an aborted parse
	// cannot leave the table half-replaced.
	result, err := ParsePrices(r)
	if err != nil {
		return Stats{}, err
	}

	err = replaceRows(db, "catalog_entries", func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO catalog_entries (component, nominal_diameter, outer_diameter, size, unit_price, unit, display_name)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare catalog entry insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range result.Entries {
			if _, err := stmt.Exec(e.Component, nullable(e.NominalDiameter), nullable(e.OuterDiameter), e.Size, e.UnitPrice, e.Unit, e.DisplayName); err != nil {
				return fmt.Errorf("insert catalog entry %q: %w", e.Component, err)
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	return Stats{Inserted: len(result.Entries), Rejected: result.Rejected}, nil
}

// ReplaceFactors imports factor records into factor_entries.
func ReplaceFactors(db *sql.DB, r io.Reader) (Stats, error) {
	result, err := ParseFactors(r)
	if err != nil {
		return Stats{}, err
	}

	err = replaceRows(db, "factor_entries", func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO factor_entries (category, name, factor) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare factor insert: %w", err)
		}
		defer stmt.Close()

		for _, f := range result.Factors {
			if _, err := stmt.Exec(string(f.Category), f.Name, f.Value); err != nil {
				return fmt.Errorf("insert factor %q: %w", f.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	return Stats{Inserted: len(result.Factors), Rejected: result.Rejected}, nil
}

// ReplaceFittings imports fitting mappings into fitting_mappings.
func ReplaceFittings(db *sql.DB, r io.Reader) (Stats, error) {
	result, err := ParseFittings(r)
	if err != nil {
		return Stats{}, err
	}

	err = replaceRows(db, "fitting_mappings", func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO fitting_mappings (fitting, base_component, factor_name) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare fitting insert: %w", err)
		}
		defer stmt.Close()

		for _, f := range result.Fittings {
			if _, err := stmt.Exec(f.Name, f.BaseComponent, f.FactorName); err != nil {
				return fmt.Errorf("insert fitting %q: %w", f.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	return Stats{Inserted: len(result.Fittings), Rejected: result.Rejected}, nil
}

// ReplaceComponents imports component classifications into catalog_components.
func ReplaceComponents(db *sql.DB, r io.Reader) (Stats, error) {
	result, err := ParseComponents(r)
	if err != nil {
		return Stats{}, err
	}

	err = replaceRows(db, "catalog_components", func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO catalog_components (name, kind) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare component insert: %w", err)
		}
		defer stmt.Close()

		for _, c := range result.Components {
			if _, err := stmt.Exec(c.Name, string(c.Kind)); err != nil {
				return fmt.Errorf("insert component %q: %w", c.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	return Stats{Inserted: len(result.Components), Rejected: result.Rejected}, nil
}

// replaceRows clears the target table and runs the insert loop inside one
// transaction so the swap is atomic.
func replaceRows(db *sql.DB, table string, insert func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin import transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is a no-op after commit

	if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
		return fmt.Errorf("clear table %s: %w", table, err)
	}
	if err := insert(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import transaction: %w", err)
	}
	return nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
