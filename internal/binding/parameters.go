// Package binding models the declared parameters of a query method and the
// rules binding them to derived query predicates. Paging and sorting
// parameters are special: they are tracked by index and excluded from the
// bindable set.
package binding

import (
	"fmt"
	"reflect"
)

// pageableType and sortType identify the special parameter types. Both the
// value and pointer forms are recognized.
var (
	pageableType = reflect.TypeOf(Pageable{})
	sortType     = reflect.TypeOf(Sort{})
)

// ParameterOutOfBoundsError reports a request for a bindable parameter index
// beyond the declared range: the parsed query expects more arguments than
// the method declares. Always a configuration defect.
type ParameterOutOfBoundsError struct {
	Index     int
	Available int
}

func (e *ParameterOutOfBoundsError) Error() string {
	return fmt.Sprintf("invalid parameter index %d, method declares %d query method parameters; "+
		"you seem to have declared too few", e.Index, e.Available)
}

// ParameterSpec describes one declared method parameter as supplied by the
// repository-proxy layer: its type and an optional explicit bind name.
type ParameterSpec struct {
	Type reflect.Type
	Name string
}

// Parameter is one declared parameter of a query method.
type Parameter struct {
	index int
	typ   reflect.Type
	name  string
}

// Index returns the parameter's position in the original declaration.
func (p *Parameter) Index() int {
	return p.index
}

// Type returns the declared parameter type.
func (p *Parameter) Type() reflect.Type {
	return p.typ
}

// Name returns the explicit bind name, or "" when none was supplied.
func (p *Parameter) Name() string {
	return p.name
}

// IsNamed reports whether an explicit bind name was supplied.
func (p *Parameter) IsNamed() bool {
	return p.name != ""
}

// IsPageable reports whether the parameter is the paging type.
func (p *Parameter) IsPageable() bool {
	return isType(p.typ, pageableType)
}

// IsSort reports whether the parameter is the sorting type.
func (p *Parameter) IsSort() bool {
	return isType(p.typ, sortType)
}

// IsSpecial reports whether the parameter is excluded from positional query
// binding.
func (p *Parameter) IsSpecial() bool {
	return p.IsPageable() || p.IsSort()
}

// IsBindable reports whether the parameter supplies a query-predicate value.
func (p *Parameter) IsBindable() bool {
	return !p.IsSpecial()
}

func isType(candidate, expected reflect.Type) bool {
	if candidate == expected {
		return true
	}
	return candidate != nil && candidate.Kind() == reflect.Ptr && candidate.Elem() == expected
}

// Parameters wraps a method's declared parameter list in declaration order.
type Parameters struct {
	parameters    []*Parameter
	pageableIndex int
	sortIndex     int
}

// NewParameters builds the indexed parameter model for a method signature.
// It records the first paging and sorting parameter, and enforces that
// either every bindable parameter carries an explicit name or none does;
// a mixed state is a configuration error raised here, not at call time.
func NewParameters(specs []ParameterSpec) (*Parameters, error) {
	parameters := make([]*Parameter, 0, len(specs))
	for i, spec := range specs {
		if spec.Type == nil {
			return nil, fmt.Errorf("parameter %d must declare a type", i)
		}
		parameters = append(parameters, &Parameter{index: i, typ: spec.Type, name: spec.Name})
	}

	result := wrap(parameters)

	if err := result.assertEitherAllNamedOrNone(); err != nil {
		return nil, err
	}

	return result, nil
}

// wrap indexes an existing parameter list, recomputing the special indexes.
func wrap(parameters []*Parameter) *Parameters {
	result := &Parameters{
		parameters:    parameters,
		pageableIndex: -1,
		sortIndex:     -1,
	}

	// Only the first occurrence of each special type is tracked; at most
	// one of each is meaningful per method.
	for i, parameter := range parameters {
		if result.pageableIndex == -1 && parameter.IsPageable() {
			result.pageableIndex = i
		}
		if result.sortIndex == -1 && parameter.IsSort() {
			result.sortIndex = i
		}
	}

	return result
}

// assertEitherAllNamedOrNone walks the bindable parameters in order and
// rejects any mix of named and unnamed ones.
func (ps *Parameters) assertEitherAllNamedOrNone() error {
	nameFound := false

	for position, parameter := range ps.Bindable().parameters {
		if parameter.IsNamed() {
			if !nameFound && position > 0 {
				return errAllOrNothing(parameter)
			}
			nameFound = true
		} else if nameFound {
			return errAllOrNothing(parameter)
		}
	}

	return nil
}

func errAllOrNothing(parameter *Parameter) error {
	return fmt.Errorf("either name all parameters except Pageable and Sort typed ones, or none at all "+
		"(parameter %d of type %s breaks the rule)", parameter.index, parameter.typ)
}

// NumberOfParameters returns the number of parameters in this view.
func (ps *Parameters) NumberOfParameters() int {
	return len(ps.parameters)
}

// Parameter returns the parameter at the given index of this view, failing
// with a ParameterOutOfBoundsError for indexes beyond the range.
func (ps *Parameters) Parameter(index int) (*Parameter, error) {
	if index < 0 || index >= len(ps.parameters) {
		return nil, &ParameterOutOfBoundsError{Index: index, Available: len(ps.parameters)}
	}
	return ps.parameters[index], nil
}

// HasParameterAt reports whether a parameter exists at the given position.
func (ps *Parameters) HasParameterAt(position int) bool {
	return position >= 0 && position < len(ps.parameters)
}

// HasPageableParameter reports whether the method declares a paging
// parameter.
func (ps *Parameters) HasPageableParameter() bool {
	return ps.pageableIndex != -1
}

// PageableIndex returns the index of the paging parameter, or -1.
func (ps *Parameters) PageableIndex() int {
	return ps.pageableIndex
}

// HasSortParameter reports whether the method declares a sorting parameter.
func (ps *Parameters) HasSortParameter() bool {
	return ps.sortIndex != -1
}

// SortIndex returns the index of the sorting parameter, or -1.
func (ps *Parameters) SortIndex() int {
	return ps.sortIndex
}

// HasSpecialParameter reports whether the method declares a paging or
// sorting parameter.
func (ps *Parameters) HasSpecialParameter() bool {
	return ps.HasPageableParameter() || ps.HasSortParameter()
}

// PotentiallySortsDynamically reports whether invocations may carry dynamic
// sorting, either directly or through a paging parameter.
func (ps *Parameters) PotentiallySortsDynamically() bool {
	return ps.HasSortParameter() || ps.HasPageableParameter()
}

// Bindable returns a view containing only the bindable parameters, in
// declaration order. The view is re-derived on every call; it is a pure
// function of the underlying parameter list.
func (ps *Parameters) Bindable() *Parameters {
	bindables := make([]*Parameter, 0, len(ps.parameters))
	for _, parameter := range ps.parameters {
		if parameter.IsBindable() {
			bindables = append(bindables, parameter)
		}
	}
	return wrap(bindables)
}

// BindableParameter returns the bindable parameter at the given bindable
// index. For a method declared as (Pageable, string), index 0 yields the
// string parameter.
func (ps *Parameters) BindableParameter(index int) (*Parameter, error) {
	return ps.Bindable().Parameter(index)
}

// ForEach invokes the visitor for every parameter of this view in order.
func (ps *Parameters) ForEach(visitor func(*Parameter)) {
	for _, parameter := range ps.parameters {
		visitor(parameter)
	}
}
