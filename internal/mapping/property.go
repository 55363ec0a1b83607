package mapping

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/schema"

	"github.com/nlstn/go-repository/internal/typeinfo"
)

// accessKind selects the strategy used to read a property value off an
// instance. It is resolved once at model-build time so that runtime access
// is a tagged dispatch, not a method lookup.
type accessKind int

const (
	accessField accessKind = iota
	accessGetter
)

// PersistentProperty is a named, typed accessor slot on an entity.
// A property is exactly one of {transient, association, plain}; plain
// persistent properties are the ones iterated for mapping.
type PersistentProperty struct {
	name       string
	field      reflect.StructField
	typeInfo   *typeinfo.TypeInformation
	owner      *PersistentEntity
	columnName string

	isID          bool
	isVersion     bool
	isTransient   bool
	isAssociation bool

	// generator names the identifier generation strategy for id properties
	// carrying a generate: tag ("uuid"), empty otherwise.
	generator string

	access    accessKind
	getter    reflect.Value // method func, receiver as first argument
	getterPtr bool          // getter declared on the pointer receiver
	setter    reflect.Value // pointer-receiver method func, zero when absent
}

// knownGenerators lists the identifier generation strategies the core
// supports.
var knownGenerators = map[string]bool{
	"uuid": true,
}

// newProperty analyzes a single struct field into a PersistentProperty.
func newProperty(field reflect.StructField, owner *PersistentEntity, namer schema.Namer) (*PersistentProperty, error) {
	property := &PersistentProperty{
		name:     uncapitalize(field.Name),
		field:    field,
		typeInfo: typeinfo.Of(field.Type),
		owner:    owner,
	}

	repoTag := field.Tag.Get("repo")
	gormTag := field.Tag.Get("gorm")

	if err := applyRepoTag(property, repoTag); err != nil {
		return nil, err
	}
	applyGormTag(property, gormTag)

	// Struct-valued fields that carry a reference tag are associations;
	// everything else stays a plain property.
	detectAssociation(property, field, repoTag, gormTag)

	if property.isAssociation && (property.isID || property.isVersion) {
		return nil, newMappingError("property %s.%s cannot be both an association and an id or version marker",
			owner.Name(), field.Name)
	}

	if property.generator != "" {
		if !property.isID {
			return nil, newMappingError("generator configured for non-id property %s.%s", owner.Name(), field.Name)
		}
		if !knownGenerators[property.generator] {
			return nil, newMappingError("unknown identifier generator %q for property %s.%s",
				property.generator, owner.Name(), field.Name)
		}
	}

	if property.columnName == "" {
		property.columnName = namer.ColumnName("", field.Name)
	}

	resolveAccess(property, field, owner.Type())

	return property, nil
}

// applyRepoTag processes the repo:"..." tag, a comma-separated part list.
func applyRepoTag(property *PersistentProperty, tag string) error {
	if tag == "" {
		return nil
	}

	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "id":
			property.isID = true
		case part == "version":
			property.isVersion = true
		case part == "transient" || part == "-":
			property.isTransient = true
		case strings.HasPrefix(part, "column:"):
			property.columnName = strings.TrimPrefix(part, "column:")
		case strings.HasPrefix(part, "generate:"):
			property.generator = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(part, "generate:")))
		case strings.HasPrefix(part, "foreignKey:"), strings.HasPrefix(part, "references:"), strings.HasPrefix(part, "many2many:"):
			// Reference markers, handled in detectAssociation.
		case part == "":
		default:
			return newMappingError("unknown repo tag part %q on property %s", part, property.field.Name)
		}
	}

	return nil
}

// applyGormTag honors the subset of GORM tags the core understands, so that
// entities already mapped for GORM work without duplicated configuration.
func applyGormTag(property *PersistentProperty, tag string) {
	if tag == "" {
		return
	}
	if tag == "-" {
		property.isTransient = true
		return
	}

	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		switch {
		case part == "primaryKey" || part == "primary_key":
			property.isID = true
		case strings.HasPrefix(part, "column:"):
			if property.columnName == "" {
				property.columnName = strings.TrimPrefix(part, "column:")
			}
		}
	}
}

// detectAssociation marks struct-typed (or slice-of-struct) properties that
// carry a reference marker in either tag namespace as associations.
func detectAssociation(property *PersistentProperty, field reflect.StructField, repoTag, gormTag string) {
	if property.isTransient || property.isAssociation {
		return
	}

	elem := field.Type
	for elem.Kind() == reflect.Slice || elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct || isSimpleType(elem) {
		return
	}

	hasMarker := strings.Contains(repoTag, "foreignKey:") || strings.Contains(repoTag, "references:") ||
		strings.Contains(repoTag, "many2many:") ||
		strings.Contains(gormTag, "foreignKey") || strings.Contains(gormTag, "references") ||
		strings.Contains(gormTag, "many2many")

	if hasMarker {
		property.isAssociation = true
	}
}

// resolveAccess picks the read strategy for the property. A declared
// Get<Field>() method on the entity type overrides plain field access, which
// lets entities expose computed or normalized values.
func resolveAccess(property *PersistentProperty, field reflect.StructField, owner reflect.Type) {
	property.access = accessField

	getterName := "Get" + field.Name
	for _, t := range []reflect.Type{owner, reflect.PointerTo(owner)} {
		method, found := t.MethodByName(getterName)
		if !found {
			continue
		}
		// Signature must be func() T with T assignable to the field type.
		mt := method.Type
		if mt.NumIn() != 1 || mt.NumOut() != 1 || !mt.Out(0).AssignableTo(field.Type) {
			continue
		}
		property.access = accessGetter
		property.getter = method.Func
		property.getterPtr = t.Kind() == reflect.Ptr
		break
	}

	setterName := "Set" + field.Name
	if method, found := reflect.PointerTo(owner).MethodByName(setterName); found {
		mt := method.Type
		if mt.NumIn() == 2 && mt.NumOut() == 0 && field.Type.AssignableTo(mt.In(1)) {
			property.setter = method.Func
		}
	}
}

// Name returns the property name (leading rune lower-cased).
func (property *PersistentProperty) Name() string {
	return property.name
}

// FieldName returns the Go struct field name backing the property.
func (property *PersistentProperty) FieldName() string {
	return property.field.Name
}

// TypeInformation returns the declared type of the property.
func (property *PersistentProperty) TypeInformation() *typeinfo.TypeInformation {
	return property.typeInfo
}

// Type returns the raw declared type of the property.
func (property *PersistentProperty) Type() reflect.Type {
	return property.field.Type
}

// Owner returns the entity the property belongs to.
func (property *PersistentProperty) Owner() *PersistentEntity {
	return property.owner
}

// ColumnName returns the storage column name, honoring column: tags and the
// configured naming strategy.
func (property *PersistentProperty) ColumnName() string {
	return property.columnName
}

// IsIDProperty reports whether the property is the identifier marker.
func (property *PersistentProperty) IsIDProperty() bool {
	return property.isID
}

// IsVersionProperty reports whether the property is the version marker.
func (property *PersistentProperty) IsVersionProperty() bool {
	return property.isVersion
}

// IsTransient reports whether the property is excluded from mapping.
func (property *PersistentProperty) IsTransient() bool {
	return property.isTransient
}

// IsAssociation reports whether the property references another entity.
func (property *PersistentProperty) IsAssociation() bool {
	return property.isAssociation
}

// Generator returns the identifier generation strategy name, or "".
func (property *PersistentProperty) Generator() string {
	return property.generator
}

// ValueOf reads the property's current value off the given instance using
// the access strategy resolved at build time.
func (property *PersistentProperty) ValueOf(instance interface{}) (interface{}, error) {
	value, err := property.instanceValue(instance)
	if err != nil {
		return nil, err
	}

	switch property.access {
	case accessGetter:
		receiver := value
		if property.getterPtr {
			if !value.CanAddr() {
				// Copy to obtain an addressable receiver for pointer methods.
				copied := reflect.New(value.Type())
				copied.Elem().Set(value)
				receiver = copied
			} else {
				receiver = value.Addr()
			}
		}
		results := property.getter.Call([]reflect.Value{receiver})
		return results[0].Interface(), nil
	default:
		return value.FieldByIndex(property.field.Index).Interface(), nil
	}
}

// SetValue writes the given value into the property of the instance, which
// must be a pointer to the entity type.
func (property *PersistentProperty) SetValue(instance, value interface{}) error {
	rv := reflect.ValueOf(instance)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("instance must be a non-nil pointer to %s", property.owner.Name())
	}
	elem := rv.Elem()
	if elem.Type() != property.owner.Type() {
		return fmt.Errorf("instance of type %s is not a %s", elem.Type(), property.owner.Name())
	}

	if property.setter.IsValid() {
		property.setter.Call([]reflect.Value{rv, reflect.ValueOf(value)})
		return nil
	}

	target := elem.FieldByIndex(property.field.Index)
	supplied := reflect.ValueOf(value)
	if !supplied.Type().AssignableTo(target.Type()) {
		return fmt.Errorf("value of type %s is not assignable to property %s.%s",
			supplied.Type(), property.owner.Name(), property.name)
	}
	target.Set(supplied)
	return nil
}

// instanceValue normalizes the instance to an addressable struct value of
// the owning type.
func (property *PersistentProperty) instanceValue(instance interface{}) (reflect.Value, error) {
	rv := reflect.ValueOf(instance)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("instance must not be nil")
		}
		rv = rv.Elem()
	}
	if rv.Type() != property.owner.Type() {
		return reflect.Value{}, fmt.Errorf("instance of type %s is not a %s", rv.Type(), property.owner.Name())
	}
	return rv, nil
}

// equalsTo reports structural equality with another property: same owner
// type and same backing field.
func (property *PersistentProperty) equalsTo(other *PersistentProperty) bool {
	if other == nil {
		return false
	}
	return property.owner.Type() == other.owner.Type() &&
		property.field.Name == other.field.Name
}

// simpleTypes lists named struct types that are persisted as scalar values
// and must never be mistaken for association targets.
var simpleTypes = map[reflect.Type]bool{
	reflect.TypeOf(time.Time{}):           true,
	reflect.TypeOf(uuid.UUID{}):           true,
	reflect.TypeOf(decimal.Decimal{}):     true,
	reflect.TypeOf(decimal.NullDecimal{}): true,
}

// isSimpleType reports whether the type is persisted as a plain value.
func isSimpleType(t reflect.Type) bool {
	if simpleTypes[t] {
		return true
	}
	switch t.Kind() {
	case reflect.Struct, reflect.Interface:
		return false
	default:
		return true
	}
}

// uncapitalize lower-cases the leading rune of the given name. Names opening
// with an initialism (two or more upper-case runes, like ID or URL) are kept
// intact so property names read naturally.
func uncapitalize(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	if len(r) > 1 && r[0] >= 'A' && r[0] <= 'Z' && r[1] >= 'A' && r[1] <= 'Z' {
		return name
	}
	if r[0] >= 'A' && r[0] <= 'Z' {
		r[0] = r[0] - 'A' + 'a'
	}
	return string(r)
}
