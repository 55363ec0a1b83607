// Package path resolves dotted or camel-case property path expressions
// against a domain type, producing a chain of typed path segments.
package path

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/nlstn/go-repository/internal/typeinfo"
)

// PropertyPath is one segment of a resolved traversal chain rooted at a
// domain type. Paths are immutable once resolved.
type PropertyPath struct {
	owningType   *typeinfo.TypeInformation
	name         string
	propertyType *typeinfo.TypeInformation
	isCollection bool
	next         *PropertyPath
}

// PropertyReferenceError reports a path segment that could not be resolved
// against a type. Base carries the deepest prefix that did resolve, which
// lets callers distinguish "this predicate does not apply to this domain
// type" from a broken declaration.
type PropertyReferenceError struct {
	Segment string
	Type    *typeinfo.TypeInformation
	Base    *PropertyPath
}

func (e *PropertyReferenceError) Error() string {
	return fmt.Sprintf("no property %q found for type %s", e.Segment, e.Type.Name())
}

// From resolves the given path expression against the root type. The
// expression may use explicit "." or "_" separators ("address.city") or
// plain camel-case ("AddressCity"); resolution prefers the longest single
// property match before splitting, so a literal field AddressZip wins over
// the nested path Address.Zip.
func From(source string, root *typeinfo.TypeInformation) (*PropertyPath, error) {
	if source == "" {
		return nil, fmt.Errorf("property path must not be empty")
	}
	if root == nil {
		return nil, fmt.Errorf("root type must not be nil")
	}
	return create(source, root, nil)
}

// create resolves the remaining source against the given type. base is the
// deepest successfully resolved prefix, reported on failure.
func create(source string, owner *typeinfo.TypeInformation, base *PropertyPath) (*PropertyPath, error) {
	// An explicit separator is an unambiguous manual split; no heuristics.
	if idx := strings.IndexAny(source, "._"); idx >= 0 {
		if idx == 0 {
			return create(source[1:], owner, base)
		}
		head, tail := source[:idx], source[idx+1:]
		segment, err := createSegment(head, owner, base)
		if err != nil {
			return nil, err
		}
		if tail == "" {
			return segment, nil
		}
		next, err := create(tail, segment.propertyType, segment)
		if err != nil {
			return nil, err
		}
		segment.next = next
		return segment, nil
	}

	// Whole remaining string as a single property first.
	if segment, err := createSegment(source, owner, base); err == nil {
		return segment, nil
	}

	// Scan camel-case boundaries right to left, recursing into the tail and
	// backtracking to the next earlier boundary when the remainder fails.
	// The first reference error seen comes from the greediest split that got
	// the furthest; report it when every split fails.
	var deepest *PropertyReferenceError
	for idx := lastBoundary(source, len(source)); idx > 0; idx = lastBoundary(source, idx) {
		head, tail := source[:idx], source[idx:]

		segment, err := createSegment(head, owner, base)
		if err != nil {
			continue
		}

		next, err := create(tail, segment.propertyType, segment)
		if err != nil {
			var refErr *PropertyReferenceError
			if deepest == nil && errors.As(err, &refErr) {
				deepest = refErr
			}
			continue
		}

		segment.next = next
		return segment, nil
	}

	if deepest != nil {
		return nil, deepest
	}
	return nil, &PropertyReferenceError{Segment: uncapitalize(source), Type: owner, Base: base}
}

// createSegment resolves a single segment name (no separators) as a direct
// property of the given type.
func createSegment(name string, owner *typeinfo.TypeInformation, base *PropertyPath) (*PropertyPath, error) {
	field, ok := owner.Field(name)
	if !ok {
		return nil, &PropertyReferenceError{Segment: uncapitalize(name), Type: owner, Base: base}
	}

	fieldInfo := typeinfo.Of(field.Type)

	return &PropertyPath{
		owningType: owner,
		name:       uncapitalize(field.Name),
		// Traversal into a collection, array or map continues against the
		// element or value type rather than the container itself.
		propertyType: fieldInfo.ActualType(),
		isCollection: fieldInfo.IsCollectionLike(),
	}, nil
}

// lastBoundary returns the index of the right-most upper-case boundary
// strictly before limit, or 0 when none remains.
func lastBoundary(source string, limit int) int {
	runes := []rune(source)
	if limit > len(runes) {
		limit = len(runes)
	}
	for i := limit - 1; i > 0; i-- {
		if unicode.IsUpper(runes[i]) {
			return i
		}
	}
	return 0
}

// Segment returns the (uncapitalized) property name of this path segment.
func (p *PropertyPath) Segment() string {
	return p.name
}

// OwningType returns the type this segment was resolved on.
func (p *PropertyPath) OwningType() *typeinfo.TypeInformation {
	return p.owningType
}

// TypeInformation returns the resolved type of this segment. For collection,
// array and map properties this is the element or value type.
func (p *PropertyPath) TypeInformation() *typeinfo.TypeInformation {
	return p.propertyType
}

// IsCollection reports whether this segment traverses a collection, array or
// map property.
func (p *PropertyPath) IsCollection() bool {
	return p.isCollection
}

// Next returns the following path segment, or nil for the last one.
func (p *PropertyPath) Next() *PropertyPath {
	return p.next
}

// HasNext reports whether more segments follow.
func (p *PropertyPath) HasNext() bool {
	return p.next != nil
}

// Leaf returns the terminal segment of the path.
func (p *PropertyPath) Leaf() *PropertyPath {
	current := p
	for current.next != nil {
		current = current.next
	}
	return current
}

// LeafType returns the resolved type of the terminal segment.
func (p *PropertyPath) LeafType() *typeinfo.TypeInformation {
	return p.Leaf().propertyType
}

// Length returns the number of segments in the path.
func (p *PropertyPath) Length() int {
	count := 0
	for current := p; current != nil; current = current.next {
		count++
	}
	return count
}

// DotPath renders the full path in dot notation, e.g. "address.city".
func (p *PropertyPath) DotPath() string {
	var b strings.Builder
	for current := p; current != nil; current = current.next {
		if current != p {
			b.WriteByte('.')
		}
		b.WriteString(current.name)
	}
	return b.String()
}

func (p *PropertyPath) String() string {
	return p.DotPath()
}

// uncapitalize lower-cases the leading rune of the given name, keeping
// initialisms (two or more leading upper-case runes) intact.
func uncapitalize(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	if len(r) > 1 && unicode.IsUpper(r[0]) && unicode.IsUpper(r[1]) {
		return name
	}
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
