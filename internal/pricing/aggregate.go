package pricing

import (
	"fmt"

	"github.com/CMDAEW/isokalk/internal/catalog"
)

// SurchargeDelta is the effect of one invoice-level surcharge on the
// running total, exposed for the invoice breakdown.
type SurchargeDelta struct {
	Name   string
	Factor float64
	Amount float64
}

// Totals is the invoice roll-up: net sum of line subtotals, the delta each
// invoice-level surcharge contributes, and the resulting grand total.
type Totals struct {
	Net        float64
	Surcharges []SurchargeDelta
	GrandTotal float64
}

// Total recomputes the invoice totals from scratch. It is called on every
// line add/remove/edit; no cached total survives a structural change.
// Invoice-level surcharges compose multiplicatively on top of the net sum,
// independent of any line-level surcharges already baked into subtotals.
func Total(store *catalog.Store, lines []Line, invoiceSurcharges []string) (Totals, error) {
	totals := Totals{Surcharges: make([]SurchargeDelta, 0, len(invoiceSurcharges))}

	for _, line := range lines {
		totals.Net += line.Subtotal
	}

	running := totals.Net
	for _, name := range dedupe(invoiceSurcharges) {
		factor, ok := store.Factor(catalog.FactorSurcharge, name)
		if !ok {
			return Totals{}, fmt.Errorf("invoice surcharge %q: %w", name, ErrNoSurchargeFactor)
		}
		delta := running * (factor - 1)
		running *= factor
		totals.Surcharges = append(totals.Surcharges, SurchargeDelta{Name: name, Factor: factor, Amount: delta})
	}

	totals.GrandTotal = running
	return totals, nil
}
