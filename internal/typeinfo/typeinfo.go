package typeinfo

import (
	"reflect"
	"strings"
	"sync"
)

// TypeInformation describes a (possibly container) type together with the
// context it was discovered in. Instances are immutable after construction
// and shared freely between goroutines.
type TypeInformation struct {
	rawType reflect.Type
	// parent is the type information this one was derived from (the owning
	// container or struct). Nil for root infos. The chain is finite by
	// construction: children are always derived from a strictly containing
	// type, so walking upwards terminates.
	parent *TypeInformation
}

// cache holds one published TypeInformation per root reflect.Type.
// Concurrent builders may race to construct a value, but LoadOrStore
// guarantees that all callers converge on a single published instance.
var cache sync.Map // reflect.Type -> *TypeInformation

// Of returns the TypeInformation for the given type. Pointer types are
// unwrapped so that *Person and Person share one entry.
func Of(t reflect.Type) *TypeInformation {
	if t == nil {
		return nil
	}

	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if cached, ok := cache.Load(t); ok {
		return cached.(*TypeInformation)
	}

	info := &TypeInformation{rawType: t}
	actual, _ := cache.LoadOrStore(t, info)
	return actual.(*TypeInformation)
}

// OfValue returns the TypeInformation for the dynamic type of the given value.
func OfValue(value interface{}) *TypeInformation {
	if value == nil {
		return nil
	}
	return Of(reflect.TypeOf(value))
}

// Type returns the raw type described by this information.
func (info *TypeInformation) Type() reflect.Type {
	return info.rawType
}

// Name returns the name of the raw type, or its string form for unnamed types.
func (info *TypeInformation) Name() string {
	if name := info.rawType.Name(); name != "" {
		return name
	}
	return info.rawType.String()
}

// Parent returns the type information this one was derived from, or nil for
// root infos.
func (info *TypeInformation) Parent() *TypeInformation {
	return info.parent
}

// IsCollectionLike reports whether the type is a slice, array or map.
func (info *TypeInformation) IsCollectionLike() bool {
	switch info.rawType.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	default:
		return false
	}
}

// IsMap reports whether the type is a map.
func (info *TypeInformation) IsMap() bool {
	return info.rawType.Kind() == reflect.Map
}

// ComponentType returns the element information of a container type: the
// deepest element type for (nested) arrays, the element type for slices,
// channels and pointers, and the key type for maps. Returns nil when the
// type carries no further element information; callers must treat nil as a
// valid terminal state, not a fault.
func (info *TypeInformation) ComponentType() *TypeInformation {
	switch info.rawType.Kind() {
	case reflect.Array:
		return info.child(resolveArrayElem(info.rawType))
	case reflect.Slice, reflect.Chan, reflect.Ptr:
		return info.child(info.rawType.Elem())
	case reflect.Map:
		return info.child(info.rawType.Key())
	default:
		return nil
	}
}

// MapValueType returns the value type information for map types, nil for
// everything else.
func (info *TypeInformation) MapValueType() *TypeInformation {
	if info.rawType.Kind() != reflect.Map {
		return nil
	}
	return info.child(info.rawType.Elem())
}

// ActualType returns the type to continue traversal against: the map value
// type for maps, the element type for slices, arrays and pointers, and the
// information itself for plain types.
func (info *TypeInformation) ActualType() *TypeInformation {
	switch info.rawType.Kind() {
	case reflect.Map:
		return info.MapValueType().ActualType()
	case reflect.Slice, reflect.Array, reflect.Ptr:
		return info.ComponentType().ActualType()
	default:
		return info
	}
}

// child derives a TypeInformation for a contained type, keeping the
// back-reference to the owning information.
func (info *TypeInformation) child(t reflect.Type) *TypeInformation {
	if t == nil {
		return nil
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return &TypeInformation{rawType: t, parent: info}
}

// resolveArrayElem descends through nested array dimensions to the deepest
// element type.
func resolveArrayElem(t reflect.Type) reflect.Type {
	elem := t.Elem()
	for elem.Kind() == reflect.Array {
		elem = elem.Elem()
	}
	return elem
}

// Field returns the exported struct field information matching the given
// property name. The name is matched against the field name directly, the
// field name with its first rune capitalized and the field's json name,
// mirroring how entity properties are addressed.
func (info *TypeInformation) Field(name string) (reflect.StructField, bool) {
	t := info.rawType
	if t.Kind() != reflect.Struct {
		return reflect.StructField{}, false
	}

	if field, ok := t.FieldByName(name); ok && field.IsExported() {
		return field, true
	}
	if field, ok := t.FieldByName(capitalize(name)); ok && field.IsExported() {
		return field, true
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if jsonName(field) == name {
			return field, true
		}
	}

	return reflect.StructField{}, false
}

// Property resolves a dot-separated property path to the terminal type
// information. Collection-typed segments continue against their element
// type. An unresolvable segment yields nil, a valid terminal state.
func (info *TypeInformation) Property(path string) *TypeInformation {
	current := info
	for _, segment := range strings.Split(path, ".") {
		field, ok := current.Field(segment)
		if !ok {
			return nil
		}
		current = current.child(field.Type).ActualType()
	}
	return current
}

// HasProperty reports whether the type declares a property with the given
// name as-is, without any path splitting.
func (info *TypeInformation) HasProperty(name string) bool {
	_, ok := info.Field(name)
	return ok
}

// jsonName extracts the JSON field name from struct tags.
func jsonName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}
	if idx := strings.IndexByte(tag, ','); idx >= 0 {
		tag = tag[:idx]
	}
	if tag == "" || tag == "-" {
		return field.Name
	}
	return tag
}

// capitalize upper-cases the leading rune of the given name.
func capitalize(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] = r[0] - 'a' + 'A'
	}
	return string(r)
}
