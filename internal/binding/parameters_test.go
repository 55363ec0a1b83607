package binding

import (
	"errors"
	"reflect"
	"testing"
)

var stringType = reflect.TypeOf("")

func TestNewParametersIndexesSpecialTypes(t *testing.T) {
	params, err := NewParameters([]ParameterSpec{
		{Type: pageableType},
		{Type: stringType},
		{Type: sortType},
	})
	if err != nil {
		t.Fatalf("Failed to build parameters: %v", err)
	}

	if !params.HasPageableParameter() || params.PageableIndex() != 0 {
		t.Errorf("Expected the pageable parameter at index 0, got %d", params.PageableIndex())
	}
	if !params.HasSortParameter() || params.SortIndex() != 2 {
		t.Errorf("Expected the sort parameter at index 2, got %d", params.SortIndex())
	}
	if !params.HasSpecialParameter() || !params.PotentiallySortsDynamically() {
		t.Errorf("Expected special parameters to be detected")
	}
}

func TestNewParametersWithoutSpecialTypes(t *testing.T) {
	params, err := NewParameters([]ParameterSpec{{Type: stringType}})
	if err != nil {
		t.Fatalf("Failed to build parameters: %v", err)
	}

	if params.HasPageableParameter() || params.PageableIndex() != -1 {
		t.Errorf("Expected no pageable parameter, got index %d", params.PageableIndex())
	}
	if params.HasSortParameter() || params.SortIndex() != -1 {
		t.Errorf("Expected no sort parameter, got index %d", params.SortIndex())
	}
}

func TestPointerFormsAreRecognized(t *testing.T) {
	params, err := NewParameters([]ParameterSpec{
		{Type: reflect.TypeOf(&Pageable{})},
	})
	if err != nil {
		t.Fatalf("Failed to build parameters: %v", err)
	}

	if !params.HasPageableParameter() {
		t.Errorf("Expected *Pageable to count as a pageable parameter")
	}
}

func TestBindableViewSkipsSpecialParameters(t *testing.T) {
	params, err := NewParameters([]ParameterSpec{
		{Type: pageableType},
		{Type: stringType},
	})
	if err != nil {
		t.Fatalf("Failed to build parameters: %v", err)
	}

	bindable := params.Bindable()
	if bindable.NumberOfParameters() != 1 {
		t.Fatalf("Expected 1 bindable parameter, got %d", bindable.NumberOfParameters())
	}

	parameter, err := params.BindableParameter(0)
	if err != nil {
		t.Fatalf("Failed to resolve bindable parameter: %v", err)
	}
	if parameter.Type() != stringType {
		t.Errorf("Expected the string parameter at bindable index 0, got %s", parameter.Type())
	}
	if parameter.Index() != 1 {
		t.Errorf("Expected the original declaration index to be preserved, got %d", parameter.Index())
	}
}

func TestParameterOutOfBounds(t *testing.T) {
	params, err := NewParameters([]ParameterSpec{{Type: stringType}})
	if err != nil {
		t.Fatalf("Failed to build parameters: %v", err)
	}

	_, err = params.Parameter(3)
	if err == nil {
		t.Fatalf("Expected an out of bounds error")
	}

	var boundsErr *ParameterOutOfBoundsError
	if !errors.As(err, &boundsErr) {
		t.Fatalf("Expected a ParameterOutOfBoundsError, got %T", err)
	}
	if boundsErr.Index != 3 || boundsErr.Available != 1 {
		t.Errorf("Expected index 3 of 1, got %d of %d", boundsErr.Index, boundsErr.Available)
	}
}

func TestAllOrNothingNaming(t *testing.T) {
	// All named is fine.
	if _, err := NewParameters([]ParameterSpec{
		{Type: stringType, Name: "first"},
		{Type: stringType, Name: "second"},
	}); err != nil {
		t.Errorf("Expected fully named parameters to be accepted: %v", err)
	}

	// None named is fine.
	if _, err := NewParameters([]ParameterSpec{
		{Type: stringType},
		{Type: stringType},
	}); err != nil {
		t.Errorf("Expected fully unnamed parameters to be accepted: %v", err)
	}

	// Mixing is rejected in both orders.
	if _, err := NewParameters([]ParameterSpec{
		{Type: stringType, Name: "first"},
		{Type: stringType},
	}); err == nil {
		t.Errorf("Expected named-then-unnamed to be rejected")
	}
	if _, err := NewParameters([]ParameterSpec{
		{Type: stringType},
		{Type: stringType, Name: "second"},
	}); err == nil {
		t.Errorf("Expected unnamed-then-named to be rejected")
	}
}

func TestAllOrNothingIgnoresSpecialParameters(t *testing.T) {
	// The special parameters never carry bind names; they must not break the
	// rule for an otherwise fully named method.
	if _, err := NewParameters([]ParameterSpec{
		{Type: stringType, Name: "first"},
		{Type: pageableType},
		{Type: stringType, Name: "second"},
	}); err != nil {
		t.Errorf("Expected special parameters to be exempt from the naming rule: %v", err)
	}
}

func TestNewParametersRequiresTypes(t *testing.T) {
	if _, err := NewParameters([]ParameterSpec{{Name: "first"}}); err == nil {
		t.Errorf("Expected a parameter without a type to be rejected")
	}
}

func TestSortAndConcatenates(t *testing.T) {
	combined := SortBy("lastname").And(Sort{Orders: []Order{{Property: "age", Direction: Desc}}})

	if len(combined.Orders) != 2 {
		t.Fatalf("Expected 2 orders, got %d", len(combined.Orders))
	}
	if combined.Orders[0].Property != "lastname" || combined.Orders[1].Property != "age" {
		t.Errorf("Expected receiver orders first, got %v", combined.Orders)
	}
	if !combined.IsSorted() || (Sort{}).IsSorted() {
		t.Errorf("Expected IsSorted to reflect the order count")
	}
}

func TestPageableOffset(t *testing.T) {
	page := PageRequest(3, 20)
	if page.Offset() != 60 {
		t.Errorf("Expected offset 60, got %d", page.Offset())
	}
}
