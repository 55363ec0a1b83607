// Package mapping builds structural models of domain types: their
// persistent properties, identifier and version markers, associations and
// storage names. Models are built once per type and treated as immutable,
// shared read-only metadata afterwards.
package mapping

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/google/uuid"

	"github.com/nlstn/go-repository/internal/typeinfo"
)

// MappingError reports a configuration-time defect in an entity mapping,
// such as duplicate id or version declarations. It is never recoverable and
// surfaces immediately to the caller building the entity.
type MappingError struct {
	Message string
}

func (e *MappingError) Error() string {
	return e.Message
}

func newMappingError(format string, args ...interface{}) *MappingError {
	return &MappingError{Message: fmt.Sprintf(format, args...)}
}

// PropertyComparator defines the ordering applied to an entity's property
// collections by Verify. A nil comparator keeps insertion order.
type PropertyComparator func(a, b *PersistentProperty) bool

// Association is a pair of properties forming a reference between two
// persistent entities. Obverse is resolved lazily by the mapping context
// once the target entity is known; it stays nil until then.
type Association struct {
	Inverse *PersistentProperty
	Obverse *PersistentProperty
}

// PersistentEntity is the structural description of one persistable type.
type PersistentEntity struct {
	typeInfo     *typeinfo.TypeInformation
	properties   []*PersistentProperty
	propertyIdx  map[string]*PersistentProperty
	associations []*Association

	idProperty      *PersistentProperty
	versionProperty *PersistentProperty

	comparator PropertyComparator

	// persistentCache holds the plain persistent properties (neither
	// transient nor association), the set iterated for mapping.
	persistentCache []*PersistentProperty

	tableName string
}

// newEntity creates an empty entity shell for the given type information.
func newEntity(info *typeinfo.TypeInformation, comparator PropertyComparator, tableName string) *PersistentEntity {
	return &PersistentEntity{
		typeInfo:    info,
		propertyIdx: make(map[string]*PersistentProperty),
		comparator:  comparator,
		tableName:   tableName,
	}
}

// Name returns the entity's type name.
func (entity *PersistentEntity) Name() string {
	return entity.typeInfo.Name()
}

// Type returns the entity's raw type.
func (entity *PersistentEntity) Type() reflect.Type {
	return entity.typeInfo.Type()
}

// TypeInformation returns the entity's type information.
func (entity *PersistentEntity) TypeInformation() *typeinfo.TypeInformation {
	return entity.typeInfo
}

// TableName returns the storage table name for the entity.
func (entity *PersistentEntity) TableName() string {
	return entity.tableName
}

// AddPersistentProperty registers a property on the entity. Adding a second
// id or version property fails with a MappingError; re-adding an equal
// property is a silent no-op.
func (entity *PersistentEntity) AddPersistentProperty(property *PersistentProperty) error {
	if property == nil {
		return fmt.Errorf("property must not be nil")
	}

	if existing, ok := entity.propertyIdx[property.name]; ok && existing.equalsTo(property) {
		return nil
	}

	if property.isID {
		if entity.idProperty != nil {
			return newMappingError(
				"attempt to add id property %s.%s but already have property %s registered as id; check your mapping configuration",
				entity.Name(), property.FieldName(), entity.idProperty.FieldName())
		}
		entity.idProperty = property
	}

	if property.isVersion {
		if entity.versionProperty != nil {
			return newMappingError(
				"attempt to add version property %s.%s but already have property %s registered as version; check your mapping configuration",
				entity.Name(), property.FieldName(), entity.versionProperty.FieldName())
		}
		entity.versionProperty = property
	}

	entity.properties = append(entity.properties, property)
	entity.propertyIdx[property.name] = property

	if !property.isTransient && !property.isAssociation {
		entity.persistentCache = append(entity.persistentCache, property)
	}

	return nil
}

// AddAssociation registers an association on the entity. Equal associations
// (same inverse property) are not re-added.
func (entity *PersistentEntity) AddAssociation(association *Association) {
	if association == nil || association.Inverse == nil {
		return
	}
	for _, existing := range entity.associations {
		if existing.Inverse.equalsTo(association.Inverse) {
			return
		}
	}
	entity.associations = append(entity.associations, association)
}

// IDProperty returns the identifier property, or nil when the entity has
// none.
func (entity *PersistentEntity) IDProperty() *PersistentProperty {
	return entity.idProperty
}

// HasIDProperty reports whether an identifier property is registered.
func (entity *PersistentEntity) HasIDProperty() bool {
	return entity.idProperty != nil
}

// VersionProperty returns the version property, or nil when the entity has
// none.
func (entity *PersistentEntity) VersionProperty() *PersistentProperty {
	return entity.versionProperty
}

// HasVersionProperty reports whether a version property is registered.
func (entity *PersistentEntity) HasVersionProperty() bool {
	return entity.versionProperty != nil
}

// PersistentProperty returns the property with the given name, or nil. The
// name is matched with its leading rune lower-cased, so both "name" and
// "Name" resolve.
func (entity *PersistentEntity) PersistentProperty(name string) *PersistentProperty {
	if property, ok := entity.propertyIdx[name]; ok {
		return property
	}
	return entity.propertyIdx[uncapitalize(name)]
}

// NumberOfProperties returns the number of registered properties.
func (entity *PersistentEntity) NumberOfProperties() int {
	return len(entity.properties)
}

// DoWithProperties invokes the visitor for every plain persistent property,
// skipping transient properties and associations.
func (entity *PersistentEntity) DoWithProperties(visitor func(*PersistentProperty)) error {
	if visitor == nil {
		return fmt.Errorf("visitor must not be nil")
	}
	for _, property := range entity.persistentCache {
		visitor(property)
	}
	return nil
}

// DoWithAssociations invokes the visitor for every association.
func (entity *PersistentEntity) DoWithAssociations(visitor func(*Association)) error {
	if visitor == nil {
		return fmt.Errorf("visitor must not be nil")
	}
	for _, association := range entity.associations {
		visitor(association)
	}
	return nil
}

// Verify finalizes the entity. When a comparator is configured it sorts the
// full property list, the persistent-only cache and the associations
// deterministically. Verify is idempotent.
func (entity *PersistentEntity) Verify() {
	if entity.comparator == nil {
		return
	}

	less := entity.comparator
	sort.SliceStable(entity.properties, func(i, j int) bool {
		return less(entity.properties[i], entity.properties[j])
	})
	sort.SliceStable(entity.persistentCache, func(i, j int) bool {
		return less(entity.persistentCache[i], entity.persistentCache[j])
	})
	sort.SliceStable(entity.associations, func(i, j int) bool {
		return less(entity.associations[i].Inverse, entity.associations[j].Inverse)
	})
}

// IdentifierAccessor reads identifier values off entity instances.
type IdentifierAccessor interface {
	// Identifier returns the current identifier value of the underlying
	// instance, or nil when the entity type has no id property.
	Identifier() interface{}
}

type propertyIdentifierAccessor struct {
	property *PersistentProperty
	instance interface{}
}

func (a propertyIdentifierAccessor) Identifier() interface{} {
	value, err := a.property.ValueOf(a.instance)
	if err != nil {
		return nil
	}
	return value
}

// nullIdentifierAccessor is returned for entities without an id property.
type nullIdentifierAccessor struct{}

func (nullIdentifierAccessor) Identifier() interface{} {
	return nil
}

// IdentifierAccessorFor returns an accessor for the given instance. Entities
// without an id property get a null-object accessor whose Identifier always
// yields nil.
func (entity *PersistentEntity) IdentifierAccessorFor(instance interface{}) IdentifierAccessor {
	if entity.idProperty == nil {
		return nullIdentifierAccessor{}
	}
	return propertyIdentifierAccessor{property: entity.idProperty, instance: instance}
}

// NewIdentifier produces a fresh identifier value for entities whose id
// property declares a generation strategy. The value is converted to the id
// property's declared type (uuid.UUID or string for the uuid strategy).
func (entity *PersistentEntity) NewIdentifier() (interface{}, error) {
	if entity.idProperty == nil {
		return nil, newMappingError("entity %s has no id property", entity.Name())
	}

	switch entity.idProperty.generator {
	case "":
		return nil, newMappingError("id property %s.%s declares no generation strategy",
			entity.Name(), entity.idProperty.FieldName())
	case "uuid":
		id := uuid.New()
		switch entity.idProperty.Type() {
		case reflect.TypeOf(uuid.UUID{}):
			return id, nil
		case reflect.TypeOf(""):
			return id.String(), nil
		default:
			return nil, newMappingError("uuid generator requires a uuid.UUID or string id property, got %s",
				entity.idProperty.Type())
		}
	default:
		return nil, newMappingError("unknown identifier generator %q", entity.idProperty.generator)
	}
}
