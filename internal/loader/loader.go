// Package loader parses the semicolon-delimited catalog source records and
// replaces the corresponding database tables atomically. A malformed row is
// recorded and skipped; it never aborts the rest of the import.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/CMDAEW/isokalk/internal/catalog"
)

const (
	priceColumns     = 7
	factorColumns    = 3
	fittingColumns   = 3
	componentColumns = 2
)

// RejectedRow records one source row that failed validation, with the
// reason it was skipped.
type RejectedRow struct {
	Line   int      `json:"line"`
	Row    []string `json:"row,omitempty"`
	Reason string   `json:"reason"`
}

// PriceResult is the outcome of parsing a price record stream.
type PriceResult struct {
	Entries  []catalog.Entry
	Rejected []RejectedRow
}

// FactorResult is the outcome of parsing a factor record stream.
type FactorResult struct {
	Factors  []catalog.Factor
	Rejected []RejectedRow
}

// FittingResult is the outcome of parsing a fitting mapping stream.
type FittingResult struct {
	Fittings []catalog.Fitting
	Rejected []RejectedRow
}

// ComponentResult is the outcome of parsing a component classification stream.
type ComponentResult struct {
	Components []catalog.Component
	Rejected   []RejectedRow
}

// ParsePrices reads price records of the shape
//
//	component_identifier;nominal_diameter;outer_diameter;size;unit_price;unit;component_name
//
// The first row is a header and is skipped, as are blank rows and rows
// starting with '#'. Decimal commas are normalized to points. The diameter
// fields may be empty for non-dimensioned components.
func ParsePrices(r io.Reader) (PriceResult, error) {
	var result PriceResult
	err := eachRecord(r, func(line int, rec []string) {
		if len(rec) != priceColumns {
			result.Rejected = append(result.Rejected, reject(line, rec, "expected %d columns, got %d", priceColumns, len(rec)))
			return
		}

		entry := catalog.Entry{
			Component:   strings.TrimSpace(rec[0]),
			Size:        strings.TrimSpace(rec[3]),
			Unit:        strings.TrimSpace(rec[5]),
			DisplayName: strings.TrimSpace(rec[6]),
		}
		if entry.Component == "" {
			result.Rejected = append(result.Rejected, reject(line, rec, "component identifier is empty"))
			return
		}
		if entry.Size == "" {
			result.Rejected = append(result.Rejected, reject(line, rec, "size is empty"))
			return
		}

		var err error
		if entry.NominalDiameter, err = parseOptionalNumber(rec[1]); err != nil {
			result.Rejected = append(result.Rejected, reject(line, rec, "nominal diameter: %v", err))
			return
		}
		if entry.OuterDiameter, err = parseOptionalNumber(rec[2]); err != nil {
			result.Rejected = append(result.Rejected, reject(line, rec, "outer diameter: %v", err))
			return
		}
		if entry.UnitPrice, err = parseNumber(rec[4]); err != nil {
			result.Rejected = append(result.Rejected, reject(line, rec, "unit price: %v", err))
			return
		}

		result.Entries = append(result.Entries, entry)
	})
	return result, err
}

// ParseFactors reads factor records of the shape category;name;factor with
// category one of activity, surcharge, fitting_markup.
func ParseFactors(r io.Reader) (FactorResult, error) {
	var result FactorResult
	err := eachRecord(r, func(line int, rec []string) {
		if len(rec) != factorColumns {
			result.Rejected = append(result.Rejected, reject(line, rec, "expected %d columns, got %d", factorColumns, len(rec)))
			return
		}

		factor := catalog.Factor{
			Category: catalog.FactorCategory(strings.TrimSpace(rec[0])),
			Name:     strings.TrimSpace(rec[1]),
		}
		switch factor.Category {
		case catalog.FactorActivity, catalog.FactorSurcharge, catalog.FactorFittingMarkup:
		default:
			result.Rejected = append(result.Rejected, reject(line, rec, "unknown factor category %q", rec[0]))
			return
		}
		if factor.Name == "" {
			result.Rejected = append(result.Rejected, reject(line, rec, "factor name is empty"))
			return
		}

		value, err := parseNumber(rec[2])
		if err != nil {
			result.Rejected = append(result.Rejected, reject(line, rec, "factor value: %v", err))
			return
		}
		if value < 0 {
			result.Rejected = append(result.Rejected, reject(line, rec, "factor value must not be negative"))
			return
		}
		factor.Value = value

		result.Factors = append(result.Factors, factor)
	})
	return result, err
}

// ParseFittings reads fitting mappings of the shape
// fitting_name;base_component;markup_factor_name.
func ParseFittings(r io.Reader) (FittingResult, error) {
	var result FittingResult
	err := eachRecord(r, func(line int, rec []string) {
		if len(rec) != fittingColumns {
			result.Rejected = append(result.Rejected, reject(line, rec, "expected %d columns, got %d", fittingColumns, len(rec)))
			return
		}

		fitting := catalog.Fitting{
			Name:          strings.TrimSpace(rec[0]),
			BaseComponent: strings.TrimSpace(rec[1]),
			FactorName:    strings.TrimSpace(rec[2]),
		}
		if fitting.Name == "" || fitting.BaseComponent == "" || fitting.FactorName == "" {
			result.Rejected = append(result.Rejected, reject(line, rec, "all fitting mapping fields are required"))
			return
		}

		result.Fittings = append(result.Fittings, fitting)
	})
	return result, err
}

// ParseComponents reads component classifications of the shape name;kind.
func ParseComponents(r io.Reader) (ComponentResult, error) {
	var result ComponentResult
	err := eachRecord(r, func(line int, rec []string) {
		if len(rec) != componentColumns {
			result.Rejected = append(result.Rejected, reject(line, rec, "expected %d columns, got %d", componentColumns, len(rec)))
			return
		}

		component := catalog.Component{
			Name: strings.TrimSpace(rec[0]),
			Kind: catalog.Kind(strings.TrimSpace(rec[1])),
		}
		if component.Name == "" {
			result.Rejected = append(result.Rejected, reject(line, rec, "component name is empty"))
			return
		}
		switch component.Kind {
		case catalog.KindPipeRun, catalog.KindFitting, catalog.KindFlat, catalog.KindMaterial, catalog.KindLabor:
		default:
			result.Rejected = append(result.Rejected, reject(line, rec, "unknown component kind %q", rec[1]))
			return
		}

		result.Components = append(result.Components, component)
	})
	return result, err
}

// eachRecord drives the semicolon CSV reader over all data rows, skipping
// the header. Rows the CSV layer itself cannot parse are handed to the
// callback as nil records; only reader I/O failures abort the whole parse.
func eachRecord(r io.Reader, visit func(line int, rec []string)) error {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header := true
	for {
		rec, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				if !header {
					visit(parseErr.Line, nil)
				}
				header = false
				continue
			}
			return fmt.Errorf("read catalog records: %w", err)
		}
		if header {
			header = false
			continue
		}
		line, _ := reader.FieldPos(0)
		visit(line, rec)
	}
}

func reject(line int, rec []string, format string, args ...any) RejectedRow {
	return RejectedRow{
		Line:   line,
		Row:    append([]string(nil), rec...),
		Reason: fmt.Sprintf(format, args...),
	}
}

// parseNumber parses a required numeric field, accepting both '.' and ','
// as the decimal separator. Regional comma formatting occurs in the source
// data and must be preserved exactly, not guessed around.
func parseNumber(raw string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if s == "" {
		return 0, fmt.Errorf("value is empty")
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is not numeric", strings.TrimSpace(raw))
	}
	return value, nil
}

// parseOptionalNumber parses a numeric field that may be empty.
func parseOptionalNumber(raw string) (*float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	value, err := parseNumber(raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
