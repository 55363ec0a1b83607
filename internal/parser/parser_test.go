package parser

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nlstn/go-repository/internal/binding"
	"github.com/nlstn/go-repository/internal/path"
	"github.com/nlstn/go-repository/internal/typeinfo"
)

type employee struct {
	Firstname    string
	Lastname     string
	Age          int
	IsNull       bool
	Cannot       bool
	Organization string
	Address      employeeAddress
}

type employeeAddress struct {
	City string
}

func employeeType() *typeinfo.TypeInformation {
	return typeinfo.OfValue(employee{})
}

func TestNewPartDetectsOperators(t *testing.T) {
	cases := []struct {
		raw       string
		property  string
		partType  *PartType
		arguments int
	}{
		{"Lastname", "lastname", Equal, 1},
		{"LastnameNot", "lastname", NotEqual, 1},
		{"LastnameLike", "lastname", Like, 1},
		{"LastnameNotLike", "lastname", NotLike, 1},
		{"AgeLessThan", "age", LessThan, 1},
		{"AgeGreaterThan", "age", GreaterThan, 1},
		{"AgeBetween", "age", Between, 2},
		{"LastnameIsNull", "lastname", IsNull, 0},
		{"LastnameNull", "lastname", IsNull, 0},
		{"LastnameIsNotNull", "lastname", IsNotNull, 0},
		{"LastnameNotNull", "lastname", IsNotNull, 0},
	}

	for _, tc := range cases {
		part, err := NewPart(tc.raw, employeeType())
		if err != nil {
			t.Fatalf("Failed to parse %q: %v", tc.raw, err)
		}
		if part.Property() != tc.property {
			t.Errorf("Expected property %q for %q, got %q", tc.property, tc.raw, part.Property())
		}
		if part.Type() != tc.partType {
			t.Errorf("Expected type %s for %q, got %s", tc.partType, tc.raw, part.Type())
		}
		if part.NumberOfArguments() != tc.arguments {
			t.Errorf("Expected %d arguments for %q, got %d", tc.arguments, tc.raw, part.NumberOfArguments())
		}
	}
}

func TestNewPartKeepsLiteralProperty(t *testing.T) {
	// The field is literally named IsNull; the keyword must not fire.
	part, err := NewPart("IsNull", employeeType())
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	if part.Type() != Equal {
		t.Errorf("Expected the literal property to yield EQUAL, got %s", part.Type())
	}
	if part.Property() != "isNull" {
		t.Errorf("Expected property isNull, got %q", part.Property())
	}
}

func TestKeywordMatchingIsCaseSensitive(t *testing.T) {
	// "CannotLike" must not hit the NotLike keyword through the lower-case
	// tail of Cannot; only the Like suffix starts at a camel boundary.
	part, err := NewPart("CannotLike", employeeType())
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	if part.Type() != Like {
		t.Errorf("Expected LIKE, got %s", part.Type())
	}
	if part.Property() != "cannot" {
		t.Errorf("Expected property cannot, got %q", part.Property())
	}
}

func TestNewPartResolvesNestedPaths(t *testing.T) {
	part, err := NewPart("AddressCityLike", employeeType())
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	if part.Property() != "address.city" {
		t.Errorf("Expected address.city, got %q", part.Property())
	}
	if part.Type() != Like {
		t.Errorf("Expected LIKE, got %s", part.Type())
	}
}

func TestNewPartUnknownPropertyFails(t *testing.T) {
	_, err := NewPart("SalaryGreaterThan", employeeType())
	if err == nil {
		t.Fatalf("Expected an unknown property to fail")
	}

	var refErr *path.PropertyReferenceError
	if !errors.As(err, &refErr) {
		t.Errorf("Expected a PropertyReferenceError, got %T", err)
	}
}

func TestParseSplitsAndClauses(t *testing.T) {
	tree, err := Parse("LastnameAndAgeGreaterThan", employeeType())
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	groups := tree.OrGroups()
	if len(groups) != 1 || len(groups[0]) != 2 {
		t.Fatalf("Expected one group of two parts, got %v", groups)
	}
	if groups[0][0].Property() != "lastname" || groups[0][1].Property() != "age" {
		t.Errorf("Expected lastname and age, got %s", tree)
	}
	if tree.NumberOfArguments() != 2 {
		t.Errorf("Expected 2 arguments, got %d", tree.NumberOfArguments())
	}
}

func TestParseSplitsOrClauses(t *testing.T) {
	tree, err := Parse("LastnameAndFirstnameOrAgeBetween", employeeType())
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	groups := tree.OrGroups()
	if len(groups) != 2 {
		t.Fatalf("Expected two or-groups, got %d", len(groups))
	}
	if len(groups[0]) != 2 || len(groups[1]) != 1 {
		t.Fatalf("Expected groups of 2 and 1 parts, got %v and %v", groups[0], groups[1])
	}
	if tree.NumberOfArguments() != 4 {
		t.Errorf("Expected 4 arguments (2 equals + between), got %d", tree.NumberOfArguments())
	}
}

func TestParseDoesNotSplitInsidePropertyNames(t *testing.T) {
	// Organization contains "Or" but carries no camel boundary after it.
	tree, err := Parse("Organization", employeeType())
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	parts := tree.Parts()
	if len(parts) != 1 || parts[0].Property() != "organization" {
		t.Errorf("Expected a single organization part, got %s", tree)
	}
}

func TestParseOrderBySuffix(t *testing.T) {
	tree, err := Parse("AgeGreaterThanOrderByLastnameDescFirstname", employeeType())
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	expected := binding.Sort{Orders: []binding.Order{
		{Property: "lastname", Direction: binding.Desc},
		{Property: "firstname", Direction: binding.Asc},
	}}
	if !reflect.DeepEqual(tree.Sort(), expected) {
		t.Errorf("Expected sort %v, got %v", expected, tree.Sort())
	}

	parts := tree.Parts()
	if len(parts) != 1 || parts[0].Type() != GreaterThan {
		t.Errorf("Expected the predicate to survive the OrderBy strip, got %s", tree)
	}
}

func TestParseRejectsRepeatedOrderBy(t *testing.T) {
	if _, err := Parse("AgeOrderByLastnameOrderByFirstname", employeeType()); err == nil {
		t.Errorf("Expected repeated OrderBy to be rejected")
	}
}

func TestParseRejectsUnknownSortProperty(t *testing.T) {
	if _, err := Parse("AgeOrderBySalaryDesc", employeeType()); err == nil {
		t.Errorf("Expected an unknown sort property to be rejected")
	}
}

func TestParseRejectsEmptyPredicate(t *testing.T) {
	if _, err := Parse("", employeeType()); err == nil {
		t.Errorf("Expected an empty predicate to be rejected")
	}
	if _, err := Parse("OrderByAge", employeeType()); err == nil {
		t.Errorf("Expected a predicate-less OrderBy to be rejected")
	}
}

func TestTreeString(t *testing.T) {
	tree, err := Parse("LastnameOrAgeLessThan", employeeType())
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	if tree.String() != "lastname EQUAL OR age LESS_THAN" {
		t.Errorf("Unexpected rendering %q", tree.String())
	}
}
