package repository

// Package repository provides the metadata and query-derivation core for
// building repository abstractions in Go. You define plain structs
// representing domain entities and the library derives a persistent entity
// model from them via reflection, including identifier and version
// properties, column names and association links. On top of that model it
// parses derived query method names such as
//
//	FindByLastnameAndAgeGreaterThanOrderByLastnameAsc
//
// into a structured predicate tree that a storage adapter can translate into
// its native query language.
//
// # Entities
//
// Entity structs are registered with a Registry. Properties are discovered
// from exported struct fields; behavior is refined through struct tags in
// the repo namespace, with gorm tags honored for compatibility:
//
//	type Product struct {
//		ID          string `repo:"id,generate:uuid"`
//		Version     int64  `repo:"version"`
//		Name        string
//		Description string `repo:"column:descr"`
//		Internal    string `repo:"transient"`
//	}
//
// At most one id and one version property may be declared per entity;
// violations surface as a *MappingError when the entity is registered, not
// at query time.
//
// # Derived queries
//
// ParseQueryMethod derives a query model from a method name and its declared
// parameter list. The method name is split into a subject prefix (FindBy,
// ReadBy, GetBy, QueryBy, CountBy, ExistsBy, DeleteBy), a predicate of
// And/Or-joined property conditions, and an optional OrderBy clause.
// Operator keywords (GreaterThan, Between, IsNull, Like, Not, ...) attach to
// the property they follow. Parsing validates every referenced property
// against the entity model and checks that the method declares exactly as
// many bindable parameters as the predicate consumes, so a broken method
// name fails at bootstrap rather than on first invocation.
//
// The parsed QueryMethod binds invocation arguments with Bind, yielding a
// BoundQuery that pairs each predicate condition with its argument values
// and carries the effective paging and sorting.

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/nlstn/go-repository/internal/binding"
	"github.com/nlstn/go-repository/internal/mapping"
	"github.com/nlstn/go-repository/internal/observability"
	"github.com/nlstn/go-repository/internal/parser"
	"github.com/nlstn/go-repository/internal/path"
	"github.com/nlstn/go-repository/internal/typeinfo"
)

// Re-exported paging and sorting types. Storage adapters and user code only
// ever deal with these names.
type (
	Pageable = binding.Pageable
	Sort     = binding.Sort
	Order    = binding.Order

	// ParameterSpec describes one declared query method parameter.
	ParameterSpec = binding.ParameterSpec

	// Direction is the ordering direction of a sort order.
	Direction = binding.Direction
)

// Re-exported model types, so that callers outside the module can name
// everything the facade hands out.
type (
	PersistentEntity   = mapping.PersistentEntity
	PersistentProperty = mapping.PersistentProperty
	Association        = mapping.Association
	IdentifierAccessor = mapping.IdentifierAccessor
	PropertyComparator = mapping.PropertyComparator
	PropertyPath       = path.PropertyPath
	PartType           = parser.PartType
	Part               = parser.Part
	Parameters         = binding.Parameters
	Parameter          = binding.Parameter
)

// Re-exported error types, all matchable with errors.As.
type (
	MappingError              = mapping.MappingError
	PropertyReferenceError    = path.PropertyReferenceError
	ParameterOutOfBoundsError = binding.ParameterOutOfBoundsError
)

const (
	Asc  = binding.Asc
	Desc = binding.Desc
)

// PageRequest creates a Pageable for the given zero-based page and size.
func PageRequest(page, size int) Pageable {
	return binding.PageRequest(page, size)
}

// SortBy creates an ascending sort over the given property paths.
func SortBy(properties ...string) Sort {
	return binding.SortBy(properties...)
}

// queryIntents maps recognized method name prefixes to their semantics.
// Longer prefixes are matched first.
var queryIntents = []struct {
	prefix string
	count  bool
	exists bool
	delete bool
}{
	{prefix: "ExistsBy", exists: true},
	{prefix: "CountBy", count: true},
	{prefix: "DeleteBy", delete: true},
	{prefix: "RemoveBy", delete: true},
	{prefix: "FindBy"},
	{prefix: "ReadBy"},
	{prefix: "GetBy"},
	{prefix: "QueryBy"},
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for registration and parsing diagnostics.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
		r.contextOptions = append(r.contextOptions, mapping.WithLogger(logger))
	}
}

// WithComparator sets the ordering applied to entity properties by Verify.
func WithComparator(comparator mapping.PropertyComparator) RegistryOption {
	return func(r *Registry) {
		r.contextOptions = append(r.contextOptions, mapping.WithComparator(comparator))
	}
}

// WithNamer overrides the column and table naming strategy.
func WithNamer(namer mapping.Namer) RegistryOption {
	return func(r *Registry) {
		r.contextOptions = append(r.contextOptions, mapping.WithNamer(namer))
	}
}

// Registry is the entry point of the library. It owns the mapping context
// holding the persistent entity models and a cache of parsed query methods.
// A Registry is safe for concurrent use; entity models and parsed methods
// are published once and shared.
type Registry struct {
	context *mapping.Context
	logger  *slog.Logger

	contextOptions []mapping.ContextOption

	mu      sync.RWMutex
	methods map[uint64]*QueryMethod
}

// NewRegistry creates a Registry with the given options.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		logger:  slog.Default(),
		methods: make(map[uint64]*QueryMethod),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.context = mapping.NewContext(r.contextOptions...)
	return r
}

// RegisterEntity analyzes the given prototype, which must be a struct or a
// pointer to one, and publishes its persistent entity model. Registering the
// same type again returns the already published model.
func (r *Registry) RegisterEntity(prototype interface{}) (*mapping.PersistentEntity, error) {
	if prototype == nil {
		return nil, fmt.Errorf("entity prototype must not be nil")
	}
	return r.context.Entity(prototype)
}

// Entity returns the published model for the prototype's type, building it
// on first use.
func (r *Registry) Entity(prototype interface{}) (*mapping.PersistentEntity, error) {
	return r.context.Entity(prototype)
}

// HasEntityFor reports whether a model has been published for the
// prototype's type.
func (r *Registry) HasEntityFor(prototype interface{}) bool {
	if prototype == nil {
		return false
	}
	return r.context.HasEntityFor(reflect.TypeOf(prototype))
}

// Context exposes the underlying mapping context for storage adapters that
// need direct access to the entity models.
func (r *Registry) Context() *mapping.Context {
	return r.context
}

// QueryMethod is a fully parsed derived query method: the predicate tree,
// the indexed parameter model and the query intent flags. Immutable after
// parsing.
type QueryMethod struct {
	name       string
	entity     *mapping.PersistentEntity
	tree       *parser.Tree
	parameters *binding.Parameters

	isCount  bool
	isExists bool
	isDelete bool
}

// ParseQueryMethod parses the named method against the domain type and its
// declared parameter list. The domain's entity model is built on first use.
// Parsing is cached per (domain type, method name, parameter shape); repeat
// calls return the published QueryMethod.
func (r *Registry) ParseQueryMethod(domain interface{}, name string, params []ParameterSpec) (*QueryMethod, error) {
	if name == "" {
		return nil, fmt.Errorf("query method name must not be empty")
	}

	entity, err := r.context.Entity(domain)
	if err != nil {
		return nil, err
	}

	key := methodKey(entity, name, params)

	r.mu.RLock()
	method, ok := r.methods[key]
	r.mu.RUnlock()
	if ok {
		observability.RecordCacheHit()
		return method, nil
	}
	observability.RecordCacheMiss()

	_, span := observability.StartSpan(context.Background(), "repository.ParseQueryMethod")
	defer span.End()

	method, err = parseQueryMethod(entity, name, params)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if published, ok := r.methods[key]; ok {
		method = published
	} else {
		r.methods[key] = method
	}
	r.mu.Unlock()

	observability.RecordMethodParsed()
	r.logger.Debug("Parsed query method",
		"entity", entity.Name(),
		"method", name,
		"predicate", method.tree.String(),
		"arguments", method.tree.NumberOfArguments())

	return method, nil
}

// methodKey hashes the method identity including the parameter shape, so
// the same name declared with different signatures is parsed separately.
func methodKey(entity *mapping.PersistentEntity, name string, params []ParameterSpec) uint64 {
	digest := xxhash.New()
	digest.WriteString(entity.Type().PkgPath())
	digest.WriteString(".")
	digest.WriteString(entity.Type().String())
	digest.WriteString("#")
	digest.WriteString(name)
	for _, param := range params {
		digest.WriteString("|")
		if param.Type != nil {
			digest.WriteString(param.Type.String())
		}
		digest.WriteString(":")
		digest.WriteString(param.Name)
	}
	return digest.Sum64()
}

func parseQueryMethod(entity *mapping.PersistentEntity, name string, params []ParameterSpec) (*QueryMethod, error) {
	method := &QueryMethod{name: name, entity: entity}

	predicate := ""
	matched := false
	for _, intent := range queryIntents {
		if strings.HasPrefix(name, intent.prefix) {
			predicate = strings.TrimPrefix(name, intent.prefix)
			method.isCount = intent.count
			method.isExists = intent.exists
			method.isDelete = intent.delete
			matched = true
			break
		}
	}
	if !matched {
		return nil, fmt.Errorf("method name %q does not declare a recognized query prefix "+
			"(FindBy, ReadBy, GetBy, QueryBy, CountBy, ExistsBy, DeleteBy)", name)
	}
	if predicate == "" {
		return nil, fmt.Errorf("method name %q declares no predicate after its query prefix", name)
	}

	tree, err := parser.Parse(predicate, entity.TypeInformation())
	if err != nil {
		return nil, fmt.Errorf("could not create query for method %q: %w", name, err)
	}

	parameters, err := binding.NewParameters(params)
	if err != nil {
		return nil, fmt.Errorf("invalid parameters for method %q: %w", name, err)
	}

	expected := tree.NumberOfArguments()
	bindable := parameters.Bindable().NumberOfParameters()
	if expected != bindable {
		return nil, fmt.Errorf("method %q expects %d query arguments but declares %d bindable parameters",
			name, expected, bindable)
	}

	method.tree = tree
	method.parameters = parameters

	return method, nil
}

// Name returns the method name as declared.
func (m *QueryMethod) Name() string {
	return m.name
}

// Entity returns the entity model the method queries.
func (m *QueryMethod) Entity() *mapping.PersistentEntity {
	return m.entity
}

// Tree returns the parsed predicate tree.
func (m *QueryMethod) Tree() *parser.Tree {
	return m.tree
}

// Parameters returns the indexed parameter model.
func (m *QueryMethod) Parameters() *binding.Parameters {
	return m.parameters
}

// IsCountQuery reports whether the method counts matches instead of
// returning them.
func (m *QueryMethod) IsCountQuery() bool {
	return m.isCount
}

// IsExistsQuery reports whether the method projects to a boolean existence
// check.
func (m *QueryMethod) IsExistsQuery() bool {
	return m.isExists
}

// IsDeleteQuery reports whether the method removes the matches.
func (m *QueryMethod) IsDeleteQuery() bool {
	return m.isDelete
}

// Condition is one predicate condition with its bound argument values.
// Values is empty for null checks and holds two values for Between.
type Condition struct {
	Property string
	Operator *parser.PartType
	Values   []interface{}
}

// BoundQuery is the result of binding invocation arguments to a parsed
// query method: the Or-joined groups of And-joined conditions plus the
// effective paging and sorting of this invocation.
type BoundQuery struct {
	Method   *QueryMethod
	Groups   [][]Condition
	Sort     Sort
	Pageable Pageable
	Paged    bool
}

// Bind aligns the invocation arguments with the parsed predicate. Arguments
// are consumed positionally by the bindable parameters in declaration
// order; Pageable and Sort arguments are skipped by the predicate and
// extracted into the bound query instead. A static OrderBy sort is applied
// first, dynamic sorting appended after it.
func (m *QueryMethod) Bind(args ...interface{}) (*BoundQuery, error) {
	if len(args) != m.parameters.NumberOfParameters() {
		return nil, fmt.Errorf("method %q declares %d parameters but was invoked with %d arguments",
			m.name, m.parameters.NumberOfParameters(), len(args))
	}

	bound := &BoundQuery{Method: m, Sort: m.tree.Sort()}

	var values []interface{}
	m.parameters.ForEach(func(parameter *binding.Parameter) {
		arg := args[parameter.Index()]
		switch {
		case parameter.IsPageable():
			if pageable, ok := asPageable(arg); ok {
				bound.Pageable = pageable
				bound.Paged = true
			}
		case parameter.IsSort():
			if sort, ok := asSort(arg); ok {
				bound.Sort = bound.Sort.And(sort)
			}
		default:
			values = append(values, arg)
		}
	})

	if bound.Paged && bound.Pageable.Sort.IsSorted() {
		bound.Sort = bound.Sort.And(bound.Pageable.Sort)
	}

	cursor := 0
	for _, group := range m.tree.OrGroups() {
		conditions := make([]Condition, 0, len(group))
		for _, part := range group {
			count := part.NumberOfArguments()
			if cursor+count > len(values) {
				return nil, &ParameterOutOfBoundsError{Index: cursor + count - 1, Available: len(values)}
			}
			conditions = append(conditions, Condition{
				Property: part.Property(),
				Operator: part.Type(),
				Values:   append([]interface{}(nil), values[cursor:cursor+count]...),
			})
			cursor += count
		}
		bound.Groups = append(bound.Groups, conditions)
	}

	return bound, nil
}

func asPageable(arg interface{}) (Pageable, bool) {
	switch v := arg.(type) {
	case Pageable:
		return v, true
	case *Pageable:
		if v != nil {
			return *v, true
		}
	}
	return Pageable{}, false
}

func asSort(arg interface{}) (Sort, bool) {
	switch v := arg.(type) {
	case Sort:
		return v, true
	case *Sort:
		if v != nil {
			return *v, true
		}
	}
	return Sort{}, false
}

// PropertyPathFrom resolves a property path expression such as
// "address.city" or "addressCity" against the prototype's type.
func PropertyPathFrom(source string, prototype interface{}) (*path.PropertyPath, error) {
	if prototype == nil {
		return nil, fmt.Errorf("prototype must not be nil")
	}
	return path.From(source, typeinfo.Of(reflect.TypeOf(prototype)))
}
