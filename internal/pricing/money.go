package pricing

import "github.com/shopspring/decimal"

// FormatAmount renders a monetary value with two decimal places for
// display. This is the only place amounts are rounded; everything upstream
// carries full float precision to avoid compounding rounding error across
// the factor chain.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// ParseQuantity parses a user-entered quantity, accepting a decimal comma
// as well as a decimal point. Non-numeric or non-positive input maps to
// ErrInvalidQuantity.
func ParseQuantity(raw string) (float64, error) {
	d, err := decimal.NewFromString(normalizeDecimal(raw))
	if err != nil {
		return 0, ErrInvalidQuantity
	}
	value, _ := d.Float64()
	if value <= 0 {
		return 0, ErrInvalidQuantity
	}
	return value, nil
}

func normalizeDecimal(raw string) string {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == ',':
			out = append(out, '.')
		case c == ' ' || c == '\t':
			// ignore
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
