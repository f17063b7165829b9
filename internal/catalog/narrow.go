package catalog

// Field names the selection field the user just edited. Narrowing depends
// on which axis changed, not on the values alone.
type Field string

const (
	FieldComponent       Field = "component"
	FieldNominalDiameter Field = "nominal_diameter"
	FieldOuterDiameter   Field = "outer_diameter"
	FieldSize            Field = "size"
)

// NarrowResult carries the recomputed option sets and the possibly adjusted
// current values after one field changed.
type NarrowResult struct {
	// Dimensioned is false for non-dimensioned or unknown components; the
	// diameter fields are then not applicable and their option sets empty.
	Dimensioned bool
	Current     Dimensions
	Options     Options
}

// Narrow keeps the three dimension fields mutually consistent as the user
// edits them one at a time. Whenever a previously selected value becomes
// invalid it falls back to the first (lowest) remaining option. Changing
// the component resets all three dimensions.
func (s *Store) Narrow(component string, current Dimensions, changed Field) NarrowResult {
	entries := s.EntriesFor(component)
	if len(entries) == 0 {
		// Unknown component or catalog not yet loaded: everything empty.
		return NarrowResult{}
	}

	kind, known := s.KindOf(component)
	if !known {
		// Entries without a classification row cannot be priced, so the
		// name gets no options here either.
		return NarrowResult{}
	}
	if !kind.Dimensioned() {
		return NarrowResult{
			Current: Dimensions{Size: current.Size},
			Options: Options{Sizes: s.DistinctDimensionValues(component, Dimensions{}).Sizes},
		}
	}

	if changed == FieldComponent ||
		(changed == FieldNominalDiameter && current.NominalDiameter == nil) ||
		(changed == FieldOuterDiameter && current.OuterDiameter == nil) {
		// Fresh component selection (or a cleared diameter): reset and
		// offer the full grid.
		return NarrowResult{
			Dimensioned: true,
			Options:     s.DistinctDimensionValues(component, Dimensions{}),
		}
	}

	full := s.DistinctDimensionValues(component, Dimensions{})
	result := NarrowResult{Dimensioned: true, Current: current}

	switch changed {
	case FieldNominalDiameter:
		result.Options.NominalDiameters = full.NominalDiameters
		paired := s.DistinctDimensionValues(component, Dimensions{NominalDiameter: current.NominalDiameter})
		result.Options.OuterDiameters = paired.OuterDiameters
		result.Current.OuterDiameter = fallbackDiameter(current.OuterDiameter, paired.OuterDiameters)

	case FieldOuterDiameter:
		result.Options.OuterDiameters = full.OuterDiameters
		paired := s.DistinctDimensionValues(component, Dimensions{OuterDiameter: current.OuterDiameter})
		result.Options.NominalDiameters = paired.NominalDiameters
		result.Current.NominalDiameter = fallbackDiameter(current.NominalDiameter, paired.NominalDiameters)

	case FieldSize:
		// Size is the most specific axis; the diameters need no narrowing.
		result.Options.NominalDiameters = full.NominalDiameters
		if current.NominalDiameter != nil {
			paired := s.DistinctDimensionValues(component, Dimensions{NominalDiameter: current.NominalDiameter})
			result.Options.OuterDiameters = paired.OuterDiameters
		} else {
			result.Options.OuterDiameters = full.OuterDiameters
		}
		result.Options.Sizes = s.DistinctDimensionValues(component, Dimensions{
			NominalDiameter: result.Current.NominalDiameter,
			OuterDiameter:   result.Current.OuterDiameter,
		}).Sizes
		return result
	}

	// Sizes consistent with the (possibly replaced) diameter pair.
	sizes := s.DistinctDimensionValues(component, Dimensions{
		NominalDiameter: result.Current.NominalDiameter,
		OuterDiameter:   result.Current.OuterDiameter,
	}).Sizes
	result.Options.Sizes = sizes
	if result.Current.Size != "" && !containsString(sizes, result.Current.Size) {
		if len(sizes) > 0 {
			result.Current.Size = sizes[0]
		} else {
			result.Current.Size = ""
		}
	}

	return result
}

// fallbackDiameter keeps the selected value if still valid, otherwise
// replaces it with the lowest remaining option.
func fallbackDiameter(selected *float64, options []float64) *float64 {
	if len(options) == 0 {
		return nil
	}
	if selected != nil {
		for _, v := range options {
			if v == *selected {
				return selected
			}
		}
	}
	lowest := options[0]
	return &lowest
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
