package typeinfo

import (
	"reflect"
	"testing"
)

type address struct {
	City    string
	ZipCode string `json:"zip"`
}

type person struct {
	Name      string
	Age       int
	Address   address
	Shipping  []address
	Nicknames map[string]string
	Matrix    [2][3]int
}

func TestOfUnwrapsPointers(t *testing.T) {
	direct := Of(reflect.TypeOf(person{}))
	viaPointer := Of(reflect.TypeOf(&person{}))

	if direct != viaPointer {
		t.Errorf("Expected pointer and value types to resolve to the same information")
	}
	if direct.Type() != reflect.TypeOf(person{}) {
		t.Errorf("Expected raw type person, got %s", direct.Type())
	}
}

func TestOfCachesInstances(t *testing.T) {
	first := Of(reflect.TypeOf(address{}))
	second := Of(reflect.TypeOf(address{}))

	if first != second {
		t.Errorf("Expected repeated lookups to yield the identical instance")
	}
}

func TestComponentTypeForSlice(t *testing.T) {
	info := Of(reflect.TypeOf([]address{}))

	component := info.ComponentType()
	if component == nil {
		t.Fatalf("Expected a component type for a slice")
	}
	if component.Type() != reflect.TypeOf(address{}) {
		t.Errorf("Expected component type address, got %s", component.Type())
	}
	if component.Parent() != info {
		t.Errorf("Expected component to keep its parent link")
	}
}

func TestComponentTypeForNestedArray(t *testing.T) {
	info := Of(reflect.TypeOf([2][3]int{}))

	component := info.ComponentType()
	if component == nil {
		t.Fatalf("Expected a component type for a nested array")
	}
	if component.Type().Kind() != reflect.Int {
		t.Errorf("Expected nested arrays to descend to the element type int, got %s", component.Type())
	}
}

func TestComponentTypeForMapIsKey(t *testing.T) {
	info := Of(reflect.TypeOf(map[string]address{}))

	component := info.ComponentType()
	if component == nil || component.Type().Kind() != reflect.String {
		t.Fatalf("Expected map component type to be the key type string")
	}

	value := info.MapValueType()
	if value == nil || value.Type() != reflect.TypeOf(address{}) {
		t.Fatalf("Expected map value type address")
	}
}

func TestComponentTypeNilForScalars(t *testing.T) {
	info := Of(reflect.TypeOf(42))

	if component := info.ComponentType(); component != nil {
		t.Errorf("Expected no component type for int, got %s", component.Type())
	}
}

func TestActualTypeUnwrapsContainers(t *testing.T) {
	info := Of(reflect.TypeOf([][]address{}))

	actual := info.ActualType()
	if actual.Type() != reflect.TypeOf(address{}) {
		t.Errorf("Expected actual type address, got %s", actual.Type())
	}
}

func TestFieldResolvesByNameAndJSONTag(t *testing.T) {
	info := Of(reflect.TypeOf(address{}))

	if field, ok := info.Field("city"); !ok || field.Name != "City" {
		t.Errorf("Expected lowercase field name to resolve to City")
	}
	if field, ok := info.Field("zip"); !ok || field.Name != "ZipCode" {
		t.Errorf("Expected json tag name to resolve to ZipCode")
	}
	if _, ok := info.Field("street"); ok {
		t.Errorf("Expected unknown field not to resolve")
	}
}

func TestPropertyResolvesDottedPaths(t *testing.T) {
	info := Of(reflect.TypeOf(person{}))

	terminal := info.Property("address.city")
	if terminal == nil || terminal.Type().Kind() != reflect.String {
		t.Fatalf("Expected address.city to resolve to string")
	}

	viaCollection := info.Property("shipping.zip")
	if viaCollection == nil || viaCollection.Type().Kind() != reflect.String {
		t.Fatalf("Expected the collection segment to continue against the element type")
	}

	if info.Property("address.street") != nil {
		t.Errorf("Expected an unresolvable segment to yield nil")
	}
}

func TestHasProperty(t *testing.T) {
	info := Of(reflect.TypeOf(person{}))

	if !info.HasProperty("address") {
		t.Errorf("Expected address to be a property of person")
	}
	if info.HasProperty("salary") {
		t.Errorf("Expected salary not to be a property of person")
	}
}
