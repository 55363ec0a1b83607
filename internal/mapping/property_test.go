package mapping

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

type invoice struct {
	ID       string `repo:"id"`
	Number   string `repo:"column:invoice_no"`
	NetTotal decimal.Decimal
	Legacy   string `gorm:"column:legacy_field"`
	Skipped  string `gorm:"-"`
}

func TestColumnNames(t *testing.T) {
	entity := newTestEntity(t, invoice{})

	cases := map[string]string{
		"ID":       "id",
		"Number":   "invoice_no",
		"NetTotal": "net_total",
		"Legacy":   "legacy_field",
	}
	for field, expected := range cases {
		property := buildTestProperty(t, entity, field)
		if property.ColumnName() != expected {
			t.Errorf("Expected column %q for %s, got %q", expected, field, property.ColumnName())
		}
	}
}

type device struct {
	ID       string `repo:"id"`
	URLPath  string
	Hostname string
}

func TestPropertyNamesKeepInitialisms(t *testing.T) {
	entity := newTestEntity(t, device{})

	cases := map[string]string{
		"ID":       "ID",
		"URLPath":  "URLPath",
		"Hostname": "hostname",
	}
	for field, expected := range cases {
		property := buildTestProperty(t, entity, field)
		if property.Name() != expected {
			t.Errorf("Expected property name %q for %s, got %q", expected, field, property.Name())
		}
	}
}

func TestGormTagCompatibility(t *testing.T) {
	entity := newTestEntity(t, invoice{})

	if !buildTestProperty(t, entity, "Skipped").IsTransient() {
		t.Errorf("Expected gorm:\"-\" to mark the property transient")
	}
}

func TestDecimalIsNotAnAssociation(t *testing.T) {
	entity := newTestEntity(t, invoice{})

	if buildTestProperty(t, entity, "NetTotal").IsAssociation() {
		t.Errorf("Expected decimal.Decimal to be treated as a simple value type")
	}
}

type badTag struct {
	Name string `repo:"frobnicate"`
}

func TestUnknownRepoTagPartFails(t *testing.T) {
	entity := newTestEntity(t, badTag{})

	field, _ := entity.Type().FieldByName("Name")
	_, err := newProperty(field, entity, testNamer())
	if err == nil {
		t.Fatalf("Expected an unknown tag part to fail")
	}
	if !strings.Contains(err.Error(), "frobnicate") {
		t.Errorf("Expected the offending tag part in the error, got %q", err.Error())
	}
}

type badGenerator struct {
	ID string `repo:"id,generate:snowflake"`
}

func TestUnknownGeneratorFails(t *testing.T) {
	entity := newTestEntity(t, badGenerator{})

	field, _ := entity.Type().FieldByName("ID")
	if _, err := newProperty(field, entity, testNamer()); err == nil {
		t.Errorf("Expected an unknown generator to fail")
	}
}

type generatorOnPlainField struct {
	Name string `repo:"generate:uuid"`
}

func TestGeneratorRequiresIDProperty(t *testing.T) {
	entity := newTestEntity(t, generatorOnPlainField{})

	field, _ := entity.Type().FieldByName("Name")
	if _, err := newProperty(field, entity, testNamer()); err == nil {
		t.Errorf("Expected a generator on a non-id property to fail")
	}
}

func TestValueOfAndSetValue(t *testing.T) {
	entity := newTestEntity(t, invoice{})
	property := buildTestProperty(t, entity, "Number")

	instance := &invoice{Number: "INV-1"}

	value, err := property.ValueOf(instance)
	if err != nil {
		t.Fatalf("ValueOf failed: %v", err)
	}
	if value != "INV-1" {
		t.Errorf("Expected INV-1, got %v", value)
	}

	if err := property.SetValue(instance, "INV-2"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if instance.Number != "INV-2" {
		t.Errorf("Expected the value to be written, got %q", instance.Number)
	}
}

func TestSetValueRequiresPointer(t *testing.T) {
	entity := newTestEntity(t, invoice{})
	property := buildTestProperty(t, entity, "Number")

	if err := property.SetValue(invoice{}, "INV-3"); err == nil {
		t.Errorf("Expected SetValue on a non-pointer instance to fail")
	}
}

type masked struct {
	Secret string
}

func (m masked) GetSecret() string {
	return "***"
}

func TestGetterOverridesFieldAccess(t *testing.T) {
	entity := newTestEntity(t, masked{})
	property := buildTestProperty(t, entity, "Secret")

	value, err := property.ValueOf(masked{Secret: "hunter2"})
	if err != nil {
		t.Fatalf("ValueOf failed: %v", err)
	}
	if value != "***" {
		t.Errorf("Expected the getter to be used, got %v", value)
	}
}

type counter struct {
	Hits int
}

func (c *counter) SetHits(hits int) {
	c.Hits = hits * 2
}

func TestSetterOverridesFieldAccess(t *testing.T) {
	entity := newTestEntity(t, counter{})
	property := buildTestProperty(t, entity, "Hits")

	instance := &counter{}
	if err := property.SetValue(instance, 21); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if instance.Hits != 42 {
		t.Errorf("Expected the setter to be used, got %d", instance.Hits)
	}
}
