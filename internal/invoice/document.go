package invoice

import (
	"fmt"

	"github.com/CMDAEW/isokalk/internal/catalog"
	"github.com/CMDAEW/isokalk/internal/pricing"
)

// Document is the flat, display-ready data handed to the PDF generator.
// All amounts are rendered with two decimals here and nowhere earlier.
type Document struct {
	InvoiceID  string              `json:"invoice_id"`
	CreatedAt  string              `json:"created_at"`
	Customer   string              `json:"customer"`
	Title      string              `json:"title"`
	Currency   string              `json:"currency"`
	Lines      []DocumentLine      `json:"lines"`
	Net        string              `json:"net"`
	Surcharges []DocumentSurcharge `json:"surcharges"`
	GrandTotal string              `json:"grand_total"`
}

// DocumentLine is one printable invoice position.
type DocumentLine struct {
	PositionCode string   `json:"position_code"`
	Description  string   `json:"description"`
	Dimensions   string   `json:"dimensions"`
	Activity     string   `json:"activity"`
	Surcharges   []string `json:"surcharges"`
	Unit         string   `json:"unit"`
	UnitPrice    string   `json:"unit_price"`
	Quantity     float64  `json:"quantity"`
	Subtotal     string   `json:"subtotal"`
}

// DocumentSurcharge is one invoice-level surcharge row of the totals block.
type DocumentSurcharge struct {
	Name   string  `json:"name"`
	Factor float64 `json:"factor"`
	Amount string  `json:"amount"`
}

// BuildDocument recomputes the invoice totals from its lines and formats
// everything for rendering. The surcharge breakdown and the net subtotal
// are both exposed so the PDF can print the totals block line by line.
func BuildDocument(store *catalog.Store, inv Invoice, currency string) (Document, error) {
	lines := make([]pricing.Line, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		lines = append(lines, l.Line)
	}

	totals, err := pricing.Total(store, lines, inv.Surcharges)
	if err != nil {
		return Document{}, fmt.Errorf("total invoice %s: %w", inv.ID, err)
	}

	doc := Document{
		InvoiceID:  inv.ID,
		CreatedAt:  inv.CreatedAt,
		Customer:   inv.Customer,
		Title:      inv.Title,
		Currency:   currency,
		Lines:      make([]DocumentLine, 0, len(inv.Lines)),
		Net:        pricing.FormatAmount(totals.Net),
		Surcharges: make([]DocumentSurcharge, 0, len(totals.Surcharges)),
		GrandTotal: pricing.FormatAmount(totals.GrandTotal),
	}

	for _, l := range inv.Lines {
		doc.Lines = append(doc.Lines, DocumentLine{
			PositionCode: l.PositionCode,
			Description:  description(l),
			Dimensions:   dimensions(l),
			Activity:     l.Activity,
			Surcharges:   l.Surcharges,
			Unit:         l.Unit,
			UnitPrice:    pricing.FormatAmount(l.UnitPrice),
			Quantity:     l.Quantity,
			Subtotal:     pricing.FormatAmount(l.Subtotal),
		})
	}

	for _, s := range totals.Surcharges {
		doc.Surcharges = append(doc.Surcharges, DocumentSurcharge{
			Name:   s.Name,
			Factor: s.Factor,
			Amount: pricing.FormatAmount(s.Amount),
		})
	}

	return doc, nil
}

func description(l Line) string {
	if l.DisplayName != "" {
		return l.DisplayName
	}
	return l.Component
}

// dimensions renders the dimension column, e.g. "DN 50 / DA 60 / 30" for a
// pipe run or just the thickness for flat components.
func dimensions(l Line) string {
	if l.NominalDiameter == nil && l.OuterDiameter == nil {
		return l.Size
	}
	dn, da := "-", "-"
	if l.NominalDiameter != nil {
		dn = fmt.Sprintf("DN %g", *l.NominalDiameter)
	}
	if l.OuterDiameter != nil {
		da = fmt.Sprintf("DA %g", *l.OuterDiameter)
	}
	return fmt.Sprintf("%s / %s / %s", dn, da, l.Size)
}
