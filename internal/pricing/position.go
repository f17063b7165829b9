package pricing

import (
	"strings"

	"github.com/CMDAEW/isokalk/internal/catalog"
)

// Position-code prefixes per component class. The code is informational,
// printed on the invoice, and never participates in pricing.
var positionPrefixes = map[catalog.Kind]string{
	catalog.KindPipeRun:  "1",
	catalog.KindFitting:  "2",
	catalog.KindFlat:     "3",
	catalog.KindMaterial: "4",
	catalog.KindLabor:    "5",
}

const defaultPositionPrefix = "9"

// PositionCode synthesizes the display position code from the component
// class and the size descriptor, e.g. "1.30" for a pipe run at size
// "30 - 40". Unrecognized classes fall back to the default prefix.
func PositionCode(kind catalog.Kind, size string) string {
	prefix, ok := positionPrefixes[kind]
	if !ok {
		prefix = defaultPositionPrefix
	}

	digits := leadingDigits(size)
	if digits == "" {
		return prefix
	}
	return prefix + "." + digits
}

// leadingDigits returns the integer digit run a size string starts with.
func leadingDigits(size string) string {
	s := strings.TrimSpace(size)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}
