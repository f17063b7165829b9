// Package catalog holds the normalized price and factor tables and answers
// the lookup and dimension-narrowing queries the pricing engine is built on.
// A Store is immutable once built; a catalog re-import produces a new Store
// that callers swap in as a whole.
package catalog

// Kind classifies a component once at load time. The resolver and the
// position-code table branch on it instead of comparing component names.
type Kind string

const (
	KindPipeRun  Kind = "pipe_run"
	KindFitting  Kind = "fitting"
	KindFlat     Kind = "flat"
	KindMaterial Kind = "material"
	KindLabor    Kind = "labor"
)

// Dimensioned reports whether components of this kind are priced over the
// (nominal diameter, outer diameter, insulation thickness) grid.
func (k Kind) Dimensioned() bool {
	return k == KindPipeRun || k == KindFitting
}

// FactorCategory distinguishes the multiplicative factor tables.
type FactorCategory string

const (
	FactorActivity      FactorCategory = "activity"
	FactorSurcharge     FactorCategory = "surcharge"
	FactorFittingMarkup FactorCategory = "fitting_markup"
)

// Component is a catalog-priced kind of work item.
type Component struct {
	Name string
	Kind Kind
}

// Entry is one price-table row. NominalDiameter and OuterDiameter are nil
// for non-dimensioned components. The tuple (Component, NominalDiameter,
// OuterDiameter, Size) is unique within the catalog.
type Entry struct {
	Component       string
	NominalDiameter *float64
	OuterDiameter   *float64
	Size            string
	UnitPrice       float64
	Unit            string
	DisplayName     string
}

// Factor is one multiplicative factor table row.
type Factor struct {
	Category FactorCategory
	Name     string
	Value    float64
}

// Fitting maps a fitting component onto the pipe-run grid it borrows its
// dimensions and base price from, plus the name of its markup factor.
type Fitting struct {
	Name          string
	BaseComponent string
	FactorName    string
}
