package mapping

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm/schema"

	"github.com/nlstn/go-repository/internal/observability"
	"github.com/nlstn/go-repository/internal/typeinfo"
)

// Context is the process-wide registry of persistent entities. Entities are
// built once per type on first request and published with first-writer-wins
// semantics; a failed construction never publishes a half-built entity.
// Published entries are append-only for the process lifetime.
type Context struct {
	mu       sync.RWMutex
	entities map[reflect.Type]*PersistentEntity

	group singleflight.Group

	comparator PropertyComparator
	namer      schema.Namer
	logger     *slog.Logger
}

// Namer computes storage names from Go identifiers. It is satisfied by
// gorm's schema.NamingStrategy, the default.
type Namer = schema.Namer

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithComparator sets the property ordering applied by Verify.
func WithComparator(comparator PropertyComparator) ContextOption {
	return func(c *Context) {
		c.comparator = comparator
	}
}

// WithNamer sets the naming strategy used for table and column names.
func WithNamer(namer schema.Namer) ContextOption {
	return func(c *Context) {
		if namer != nil {
			c.namer = namer
		}
	}
}

// WithLogger sets the logger used for registration events.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewContext creates an empty mapping context.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{
		entities: make(map[reflect.Type]*PersistentEntity),
		namer:    schema.NamingStrategy{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Entity returns the persistent entity for the dynamic type of the given
// prototype, building it on first request.
func (c *Context) Entity(prototype interface{}) (*PersistentEntity, error) {
	if prototype == nil {
		return nil, fmt.Errorf("prototype must not be nil")
	}
	return c.EntityOf(reflect.TypeOf(prototype))
}

// EntityOf returns the persistent entity for the given type, building it on
// first request. Pointer types are unwrapped.
func (c *Context) EntityOf(entityType reflect.Type) (*PersistentEntity, error) {
	if entityType == nil {
		return nil, fmt.Errorf("entity type must not be nil")
	}
	for entityType.Kind() == reflect.Ptr {
		entityType = entityType.Elem()
	}
	if entityType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity must be a struct, got %s", entityType.Kind())
	}

	c.mu.RLock()
	entity, ok := c.entities[entityType]
	c.mu.RUnlock()
	if ok {
		observability.RecordCacheHit()
		return entity, nil
	}
	observability.RecordCacheMiss()

	// Concurrent builders for the same type collapse into one construction;
	// the result is published only on success.
	key := entityType.PkgPath() + "." + entityType.String()
	built, err, _ := c.group.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		existing, ok := c.entities[entityType]
		c.mu.RUnlock()
		if ok {
			return existing, nil
		}

		entity, err := c.buildEntity(entityType)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if published, ok := c.entities[entityType]; ok {
			entity = published
		} else {
			c.entities[entityType] = entity
		}
		c.mu.Unlock()

		return entity, nil
	})
	if err != nil {
		return nil, err
	}

	return built.(*PersistentEntity), nil
}

// buildEntity analyzes the struct type into a verified PersistentEntity.
func (c *Context) buildEntity(entityType reflect.Type) (*PersistentEntity, error) {
	info := typeinfo.Of(entityType)
	entity := newEntity(info, c.comparator, tableName(entityType, c.namer))

	for i := 0; i < entityType.NumField(); i++ {
		field := entityType.Field(i)
		if !field.IsExported() {
			continue
		}

		property, err := newProperty(field, entity, c.namer)
		if err != nil {
			return nil, fmt.Errorf("error analyzing field %s.%s: %w", entityType.Name(), field.Name, err)
		}

		if err := entity.AddPersistentProperty(property); err != nil {
			return nil, err
		}
		if property.IsAssociation() {
			entity.AddAssociation(&Association{Inverse: property})
		}
	}

	c.resolveAssociationTargets(entity)
	entity.Verify()

	observability.RecordEntityAnalyzed()
	c.logger.Debug("Registered persistent entity",
		"entity", entity.Name(),
		"table", entity.TableName(),
		"properties", entity.NumberOfProperties(),
		"hasId", entity.HasIDProperty(),
		"hasVersion", entity.HasVersionProperty())

	return entity, nil
}

// resolveAssociationTargets fills in the obverse side of associations whose
// target entity is already published. Resolution happens once at build time;
// targets not yet published leave the obverse nil, so referenced entities
// should be registered before their referrers.
func (c *Context) resolveAssociationTargets(entity *PersistentEntity) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, association := range entity.associations {
		targetType := association.Inverse.Type()
		for targetType.Kind() == reflect.Slice || targetType.Kind() == reflect.Ptr {
			targetType = targetType.Elem()
		}
		if target, ok := c.entities[targetType]; ok && target.idProperty != nil {
			association.Obverse = target.idProperty
		}
	}
}

// Entities returns a snapshot of all published entities.
func (c *Context) Entities() []*PersistentEntity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*PersistentEntity, 0, len(c.entities))
	for _, entity := range c.entities {
		result = append(result, entity)
	}
	return result
}

// HasEntityFor reports whether an entity is already published for the type.
func (c *Context) HasEntityFor(entityType reflect.Type) bool {
	for entityType != nil && entityType.Kind() == reflect.Ptr {
		entityType = entityType.Elem()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entities[entityType]
	return ok
}

// tableName computes the storage table name for an entity type, honoring a
// TableName() method on the type before falling back to the naming strategy.
func tableName(entityType reflect.Type, namer schema.Namer) string {
	instance := reflect.New(entityType).Interface()
	if tabler, ok := instance.(interface{ TableName() string }); ok {
		return tabler.TableName()
	}
	return namer.TableName(entityType.Name())
}
