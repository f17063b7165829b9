package catalog

import "sort"

// Store is the immutable-per-session catalog: price entries, factor tables,
// fitting mappings and component classification, indexed for exact-match
// and filtered-enumeration queries. Read operations never mutate state.
type Store struct {
	version    int64
	components map[string]Component
	entries    map[string][]Entry
	factors    map[FactorCategory]map[string]float64
	fittings   map[string]Fitting
}

// NewStore builds an indexed store from normalized rows. Entries keep their
// given catalog order per component.
func NewStore(version int64, components []Component, entries []Entry, factors []Factor, fittings []Fitting) *Store {
	s := &Store{
		version:    version,
		components: make(map[string]Component, len(components)),
		entries:    make(map[string][]Entry),
		factors:    make(map[FactorCategory]map[string]float64),
		fittings:   make(map[string]Fitting, len(fittings)),
	}

	for _, c := range components {
		s.components[c.Name] = c
	}
	for _, e := range entries {
		s.entries[e.Component] = append(s.entries[e.Component], e)
	}
	for _, f := range factors {
		byName := s.factors[f.Category]
		if byName == nil {
			byName = make(map[string]float64)
			s.factors[f.Category] = byName
		}
		byName[f.Name] = f.Value
	}
	for _, f := range fittings {
		s.fittings[f.Name] = f
	}

	return s
}

// Version identifies the catalog generation this store was built from.
// Every successful re-import produces a store with a higher version.
func (s *Store) Version() int64 {
	return s.version
}

// Components lists all classified components sorted by name, fittings included.
func (s *Store) Components() []Component {
	out := make([]Component, 0, len(s.components)+len(s.fittings))
	for _, c := range s.components {
		out = append(out, c)
	}
	for name := range s.fittings {
		if _, ok := s.components[name]; !ok {
			out = append(out, Component{Name: name, Kind: KindFitting})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// KindOf returns the classification of a component. A fitting mapping takes
// precedence over an explicit component row. The second result is false for
// names the catalog knows nothing about.
func (s *Store) KindOf(name string) (Kind, bool) {
	if _, ok := s.fittings[name]; ok {
		return KindFitting, true
	}
	if c, ok := s.components[name]; ok {
		return c.Kind, true
	}
	return "", false
}

// FittingFor returns the fitting mapping for a component name, if any.
func (s *Store) FittingFor(name string) (Fitting, bool) {
	f, ok := s.fittings[name]
	return f, ok
}

// EntriesFor returns all price entries for a component name in catalog
// order. Fittings are resolved through their mapping onto the pipe-run
// grid. An unknown component yields an empty slice, not an error; the
// caller decides whether that is fatal.
func (s *Store) EntriesFor(component string) []Entry {
	if f, ok := s.fittings[component]; ok {
		component = f.BaseComponent
	}
	return s.entries[component]
}

// Dimensions is a possibly partial (nominal diameter, outer diameter, size)
// selection. Nil pointers and the empty size mean "not selected".
type Dimensions struct {
	NominalDiameter *float64
	OuterDiameter   *float64
	Size            string
}

// Options are the distinct valid values per dimension axis, each sorted
// ascending.
type Options struct {
	NominalDiameters []float64
	OuterDiameters   []float64
	Sizes            []string
}

// DistinctDimensionValues projects the entries matching the fixed subset of
// dimensions onto each axis, nil-filtered and sorted. Numeric axes sort
// ascending; sizes sort by their leading numeric magnitude.
func (s *Store) DistinctDimensionValues(component string, fixed Dimensions) Options {
	var opts Options
	seenDN := make(map[float64]bool)
	seenDA := make(map[float64]bool)
	seenSize := make(map[string]bool)

	for _, e := range s.EntriesFor(component) {
		if !matches(e, fixed) {
			continue
		}
		if e.NominalDiameter != nil && !seenDN[*e.NominalDiameter] {
			seenDN[*e.NominalDiameter] = true
			opts.NominalDiameters = append(opts.NominalDiameters, *e.NominalDiameter)
		}
		if e.OuterDiameter != nil && !seenDA[*e.OuterDiameter] {
			seenDA[*e.OuterDiameter] = true
			opts.OuterDiameters = append(opts.OuterDiameters, *e.OuterDiameter)
		}
		if !seenSize[e.Size] {
			seenSize[e.Size] = true
			opts.Sizes = append(opts.Sizes, e.Size)
		}
	}

	sort.Float64s(opts.NominalDiameters)
	sort.Float64s(opts.OuterDiameters)
	sortSizes(opts.Sizes)
	return opts
}

// FindEntry returns the single entry matching the fully specified
// dimensions, including nil-ness of the diameter fields. Fittings are
// resolved through their mapping first.
func (s *Store) FindEntry(component string, dims Dimensions) (Entry, bool) {
	for _, e := range s.EntriesFor(component) {
		if !sameDiameter(e.NominalDiameter, dims.NominalDiameter) {
			continue
		}
		if !sameDiameter(e.OuterDiameter, dims.OuterDiameter) {
			continue
		}
		if e.Size != dims.Size {
			continue
		}
		return e, true
	}
	return Entry{}, false
}

// Factor performs an exact factor lookup. A missing factor is reported via
// the second result, never treated as zero or one.
func (s *Store) Factor(category FactorCategory, name string) (float64, bool) {
	byName, ok := s.factors[category]
	if !ok {
		return 0, false
	}
	value, ok := byName[name]
	return value, ok
}

// FactorNames lists the factor names known in a category, sorted.
func (s *Store) FactorNames(category FactorCategory) []string {
	byName := s.factors[category]
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// matches reports whether an entry is consistent with the fixed subset of a
// partial selection. Unset fields match everything.
func matches(e Entry, fixed Dimensions) bool {
	if fixed.NominalDiameter != nil {
		if e.NominalDiameter == nil || *e.NominalDiameter != *fixed.NominalDiameter {
			return false
		}
	}
	if fixed.OuterDiameter != nil {
		if e.OuterDiameter == nil || *e.OuterDiameter != *fixed.OuterDiameter {
			return false
		}
	}
	if fixed.Size != "" && e.Size != fixed.Size {
		return false
	}
	return true
}

func sameDiameter(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
