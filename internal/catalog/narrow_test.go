package catalog

import (
	"reflect"
	"testing"
)

func TestNarrow_ComponentChangeResetsDimensions(t *testing.T) {
	s := newTestStore(t)

	result := s.Narrow("Rohrleitung", Dimensions{NominalDiameter: f64(20), OuterDiameter: f64(26.9), Size: "30"}, FieldComponent)

	if !result.Dimensioned {
		t.Fatalf("pipe run must be dimensioned")
	}
	if result.Current.NominalDiameter != nil || result.Current.OuterDiameter != nil || result.Current.Size != "" {
		t.Fatalf("expected reset dimensions, got %+v", result.Current)
	}
	if !reflect.DeepEqual(result.Options.NominalDiameters, []float64{20, 25, 50}) {
		t.Fatalf("unexpected DN options: %v", result.Options.NominalDiameters)
	}
	if !reflect.DeepEqual(result.Options.OuterDiameters, []float64{26.9, 33.7, 60, 63.5}) {
		t.Fatalf("unexpected DA options: %v", result.Options.OuterDiameters)
	}
}

func TestNarrow_NominalDiameterProjectsOuterDiameters(t *testing.T) {
	s := newTestStore(t)

	result := s.Narrow("Rohrleitung", Dimensions{NominalDiameter: f64(50)}, FieldNominalDiameter)

	// Option set must be exactly the projection of entries at DN 50.
	if !reflect.DeepEqual(result.Options.OuterDiameters, []float64{60, 63.5}) {
		t.Fatalf("unexpected DA options: %v", result.Options.OuterDiameters)
	}
	// No DA was selected yet: lowest option becomes the selection.
	if result.Current.OuterDiameter == nil || *result.Current.OuterDiameter != 60 {
		t.Fatalf("expected DA fallback 60, got %v", result.Current.OuterDiameter)
	}
	if !reflect.DeepEqual(result.Options.Sizes, []string{"30", "40 - 50", "100"}) {
		t.Fatalf("unexpected sizes: %v", result.Options.Sizes)
	}
}

func TestNarrow_InvalidOuterDiameterFallsBackToLowestValid(t *testing.T) {
	s := newTestStore(t)

	// DA 26.9 only pairs with DN 20; after switching DN to 25 it is invalid.
	current := Dimensions{NominalDiameter: f64(25), OuterDiameter: f64(26.9), Size: "30"}
	result := s.Narrow("Rohrleitung", current, FieldNominalDiameter)

	if result.Current.OuterDiameter == nil || *result.Current.OuterDiameter != 33.7 {
		t.Fatalf("expected fallback DA 33.7, got %v", result.Current.OuterDiameter)
	}
	if result.Current.Size != "30" {
		t.Fatalf("size 30 is still valid and must be kept, got %q", result.Current.Size)
	}
}

func TestNarrow_ValidOuterDiameterIsKept(t *testing.T) {
	s := newTestStore(t)

	current := Dimensions{NominalDiameter: f64(50), OuterDiameter: f64(63.5)}
	result := s.Narrow("Rohrleitung", current, FieldNominalDiameter)

	if result.Current.OuterDiameter == nil || *result.Current.OuterDiameter != 63.5 {
		t.Fatalf("valid DA must survive narrowing, got %v", result.Current.OuterDiameter)
	}
	if !reflect.DeepEqual(result.Options.Sizes, []string{"30"}) {
		t.Fatalf("unexpected sizes for DN 50 / DA 63.5: %v", result.Options.Sizes)
	}
}

func TestNarrow_OuterDiameterChangeIsSymmetric(t *testing.T) {
	s := newTestStore(t)

	current := Dimensions{NominalDiameter: f64(20), OuterDiameter: f64(60)}
	result := s.Narrow("Rohrleitung", current, FieldOuterDiameter)

	if !reflect.DeepEqual(result.Options.NominalDiameters, []float64{50}) {
		t.Fatalf("unexpected DN options for DA 60: %v", result.Options.NominalDiameters)
	}
	if result.Current.NominalDiameter == nil || *result.Current.NominalDiameter != 50 {
		t.Fatalf("expected DN fallback 50, got %v", result.Current.NominalDiameter)
	}
}

func TestNarrow_InvalidSizeFallsBackToLowest(t *testing.T) {
	s := newTestStore(t)

	// Size 50 exists only at DN 25; at DN 20 it must fall back to "30".
	current := Dimensions{NominalDiameter: f64(20), OuterDiameter: f64(26.9), Size: "50"}
	result := s.Narrow("Rohrleitung", current, FieldNominalDiameter)

	if result.Current.Size != "30" {
		t.Fatalf("expected size fallback 30, got %q", result.Current.Size)
	}
}

func TestNarrow_SizeChangeNarrowsNothingFurther(t *testing.T) {
	s := newTestStore(t)

	current := Dimensions{NominalDiameter: f64(25), OuterDiameter: f64(33.7), Size: "40"}
	result := s.Narrow("Rohrleitung", current, FieldSize)

	if !reflect.DeepEqual(result.Current, current) {
		t.Fatalf("size change must not adjust current values: %+v", result.Current)
	}
	if !reflect.DeepEqual(result.Options.Sizes, []string{"30", "40", "50"}) {
		t.Fatalf("unexpected sizes: %v", result.Options.Sizes)
	}
}

func TestNarrow_FittingUsesPipeRunGrid(t *testing.T) {
	s := newTestStore(t)

	result := s.Narrow("Bogen 90°", Dimensions{}, FieldComponent)

	if !result.Dimensioned {
		t.Fatalf("fitting must be dimensioned")
	}
	if !reflect.DeepEqual(result.Options.NominalDiameters, []float64{20, 25, 50}) {
		t.Fatalf("unexpected DN options: %v", result.Options.NominalDiameters)
	}
}

func TestNarrow_FlatComponentSuppressesDiameters(t *testing.T) {
	s := newTestStore(t)

	result := s.Narrow("Behälter", Dimensions{Size: "50"}, FieldComponent)

	if result.Dimensioned {
		t.Fatalf("flat component must not be dimensioned")
	}
	if len(result.Options.NominalDiameters) != 0 || len(result.Options.OuterDiameters) != 0 {
		t.Fatalf("diameter options must be empty: %+v", result.Options)
	}
	if !reflect.DeepEqual(result.Options.Sizes, []string{"30", "50", "100"}) {
		t.Fatalf("unexpected sizes: %v", result.Options.Sizes)
	}
	if result.Current.Size != "50" {
		t.Fatalf("size selection must be kept, got %q", result.Current.Size)
	}
}

func TestNarrow_UnknownComponentYieldsEmptyResult(t *testing.T) {
	s := newTestStore(t)

	result := s.Narrow("Unbekannt", Dimensions{}, FieldComponent)

	if result.Dimensioned {
		t.Fatalf("unknown component must not be dimensioned")
	}
	if len(result.Options.NominalDiameters) != 0 || len(result.Options.OuterDiameters) != 0 || len(result.Options.Sizes) != 0 {
		t.Fatalf("expected empty option sets, got %+v", result.Options)
	}
}

func TestNarrow_UnclassifiedComponentYieldsEmptyResult(t *testing.T) {
	// Price entries exist but neither a component row nor a fitting
	// mapping classifies the name, so it cannot be priced and must not be
	// offered options either.
	entries := []Entry{
		{Component: "Sonderteil", Size: "30", UnitPrice: 5.00, Unit: "m"},
	}
	s := NewStore(1, nil, entries, nil, nil)

	result := s.Narrow("Sonderteil", Dimensions{Size: "30"}, FieldComponent)

	if result.Dimensioned {
		t.Fatalf("unclassified component must not be dimensioned")
	}
	if len(result.Options.Sizes) != 0 {
		t.Fatalf("expected no size options, got %v", result.Options.Sizes)
	}
	if result.Current.Size != "" {
		t.Fatalf("expected a reset selection, got %q", result.Current.Size)
	}
}
