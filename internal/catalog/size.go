package catalog

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// sizeSortKey returns the numeric magnitude a size string sorts by.
// Plain values ("30") and range values ("30 - 40") both sort by their
// leading number; decimal commas are accepted. Sizes without a leading
// number sort last.
func sizeSortKey(size string) float64 {
	s := strings.TrimSpace(size)
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || c == '.' || c == ',' {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return math.Inf(1)
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(s[:end], ",", "."), 64)
	if err != nil {
		return math.Inf(1)
	}
	return value
}

// sortSizes orders size strings ascending by leading numeric magnitude,
// falling back to plain string comparison on ties.
func sortSizes(sizes []string) {
	sort.SliceStable(sizes, func(i, j int) bool {
		ki, kj := sizeSortKey(sizes[i]), sizeSortKey(sizes[j])
		if ki != kj {
			return ki < kj
		}
		return sizes[i] < sizes[j]
	})
}
