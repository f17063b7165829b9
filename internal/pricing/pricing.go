// Package pricing turns a fully specified selection into a unit price and
// line subtotal, and rolls resolved lines up into invoice totals. All
// intermediate arithmetic stays unrounded; rounding happens only at the
// presentation step.
package pricing

import (
	"fmt"
	"math"

	"github.com/CMDAEW/isokalk/internal/catalog"
)

// Selection is the user's in-progress choice for one line item. It is an
// immutable value passed into Resolve; resolver calls share no state.
type Selection struct {
	Component       string
	NominalDiameter *float64
	OuterDiameter   *float64
	Size            string
	Activity        string
	Surcharges      []string
	Quantity        float64
}

// Line is a resolved invoice line, immutable once added to an invoice.
type Line struct {
	PositionCode    string
	Component       string
	DisplayName     string
	NominalDiameter *float64
	OuterDiameter   *float64
	Size            string
	Activity        string
	Unit            string
	UnitPrice       float64
	Quantity        float64
	Subtotal        float64
	Surcharges      []string
}

// Resolve computes the unit price and subtotal for a selection:
// base catalog lookup (fittings redirected onto the pipe-run grid and
// marked up by their own factor), activity factor, then each selected
// surcharge factor exactly once. Resolving the same selection twice
// yields the identical result.
func Resolve(store *catalog.Store, sel Selection) (Line, error) {
	kind, known := store.KindOf(sel.Component)
	if !known {
		return Line{}, fmt.Errorf("component %q: %w", sel.Component, ErrUnknownComponent)
	}

	if sel.Size == "" || sel.Activity == "" {
		return Line{}, ErrIncompleteSelection
	}
	if kind.Dimensioned() && (sel.NominalDiameter == nil || sel.OuterDiameter == nil) {
		return Line{}, ErrIncompleteSelection
	}

	if !(sel.Quantity > 0) || math.IsInf(sel.Quantity, 0) {
		return Line{}, fmt.Errorf("quantity %v: %w", sel.Quantity, ErrInvalidQuantity)
	}

	dims := catalog.Dimensions{Size: sel.Size}
	if kind.Dimensioned() {
		dims.NominalDiameter = sel.NominalDiameter
		dims.OuterDiameter = sel.OuterDiameter
	}

	entry, ok := store.FindEntry(sel.Component, dims)
	if !ok {
		return Line{}, fmt.Errorf("component %q dims %s: %w", sel.Component, formatDims(dims), ErrNoPriceFound)
	}

	price := entry.UnitPrice

	if fitting, isFitting := store.FittingFor(sel.Component); isFitting {
		markup, ok := store.Factor(catalog.FactorFittingMarkup, fitting.FactorName)
		if !ok {
			return Line{}, fmt.Errorf("fitting markup factor %q: %w", fitting.FactorName, ErrNoPriceFound)
		}
		price *= markup
	}

	activity, ok := store.Factor(catalog.FactorActivity, sel.Activity)
	if !ok {
		return Line{}, fmt.Errorf("activity %q: %w", sel.Activity, ErrNoActivityFactor)
	}
	price *= activity

	surcharges := dedupe(sel.Surcharges)
	for _, name := range surcharges {
		factor, ok := store.Factor(catalog.FactorSurcharge, name)
		if !ok {
			return Line{}, fmt.Errorf("surcharge %q: %w", name, ErrNoSurchargeFactor)
		}
		price *= factor
	}

	return Line{
		PositionCode:    PositionCode(kind, sel.Size),
		Component:       sel.Component,
		DisplayName:     entry.DisplayName,
		NominalDiameter: dims.NominalDiameter,
		OuterDiameter:   dims.OuterDiameter,
		Size:            sel.Size,
		Activity:        sel.Activity,
		Unit:            entry.Unit,
		UnitPrice:       price,
		Quantity:        sel.Quantity,
		Subtotal:        price * sel.Quantity,
		Surcharges:      surcharges,
	}, nil
}

// dedupe keeps the first occurrence of each surcharge name so selecting a
// surcharge twice applies its factor exactly once.
func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func formatDims(dims catalog.Dimensions) string {
	dn, da := "-", "-"
	if dims.NominalDiameter != nil {
		dn = fmt.Sprintf("DN %g", *dims.NominalDiameter)
	}
	if dims.OuterDiameter != nil {
		da = fmt.Sprintf("DA %g", *dims.OuterDiameter)
	}
	return fmt.Sprintf("%s / %s / %s", dn, da, dims.Size)
}
