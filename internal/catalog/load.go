package catalog

import (
	"database/sql"
	"fmt"
	"sync/atomic"
)

var loadGeneration atomic.Int64

// Load reads all catalog tables and builds a fresh immutable Store. Each
// call yields a strictly increasing version so callers can tell re-imports
// apart from the handle they already hold.
func Load(db *sql.DB) (*Store, error) {
	components, err := loadComponents(db)
	if err != nil {
		return nil, err
	}
	entries, err := loadEntries(db)
	if err != nil {
		return nil, err
	}
	factors, err := loadFactors(db)
	if err != nil {
		return nil, err
	}
	fittings, err := loadFittings(db)
	if err != nil {
		return nil, err
	}

	return NewStore(loadGeneration.Add(1), components, entries, factors, fittings), nil
}

func loadComponents(db *sql.DB) ([]Component, error) {
	rows, err := db.Query(`SELECT name, kind FROM catalog_components ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query catalog components: %w", err)
	}
	defer rows.Close()

	components := make([]Component, 0)
	for rows.Next() {
		var c Component
		var kind string
		if err := rows.Scan(&c.Name, &kind); err != nil {
			return nil, fmt.Errorf("scan catalog component: %w", err)
		}
		c.Kind = Kind(kind)
		components = append(components, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog components: %w", err)
	}
	return components, nil
}

func loadEntries(db *sql.DB) ([]Entry, error) {
	rows, err := db.Query(`
		SELECT component, nominal_diameter, outer_diameter, size, unit_price, unit, display_name
		FROM catalog_entries
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query catalog entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var dn, da sql.NullFloat64
		if err := rows.Scan(&e.Component, &dn, &da, &e.Size, &e.UnitPrice, &e.Unit, &e.DisplayName); err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		if dn.Valid {
			v := dn.Float64
			e.NominalDiameter = &v
		}
		if da.Valid {
			v := da.Float64
			e.OuterDiameter = &v
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog entries: %w", err)
	}
	return entries, nil
}

func loadFactors(db *sql.DB) ([]Factor, error) {
	rows, err := db.Query(`SELECT category, name, factor FROM factor_entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query factor entries: %w", err)
	}
	defer rows.Close()

	factors := make([]Factor, 0)
	for rows.Next() {
		var f Factor
		var category string
		if err := rows.Scan(&category, &f.Name, &f.Value); err != nil {
			return nil, fmt.Errorf("scan factor entry: %w", err)
		}
		f.Category = FactorCategory(category)
		factors = append(factors, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate factor entries: %w", err)
	}
	return factors, nil
}

func loadFittings(db *sql.DB) ([]Fitting, error) {
	rows, err := db.Query(`SELECT fitting, base_component, factor_name FROM fitting_mappings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query fitting mappings: %w", err)
	}
	defer rows.Close()

	fittings := make([]Fitting, 0)
	for rows.Next() {
		var f Fitting
		if err := rows.Scan(&f.Name, &f.BaseComponent, &f.FactorName); err != nil {
			return nil, fmt.Errorf("scan fitting mapping: %w", err)
		}
		fittings = append(fittings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fitting mappings: %w", err)
	}
	return fittings, nil
}
