// Package parser splits derived query-method names into ordered, typed
// predicate fragments bound to resolved property paths.
package parser

import (
	"strings"
	"unicode"

	"github.com/nlstn/go-repository/internal/path"
	"github.com/nlstn/go-repository/internal/typeinfo"
)

// PartType tags a predicate fragment with its operator semantics: the
// keyword suffixes that select it and the number of method arguments it
// binds.
type PartType struct {
	name              string
	keywords          []string
	numberOfArguments int
}

// The fixed operator table. Detection order matters: IsNotNull and IsNull
// must be tested before the comparison keywords because "NotNull" and
// "Null" are textual suffixes that could otherwise be misidentified.
var (
	IsNotNull   = &PartType{name: "IS_NOT_NULL", keywords: []string{"IsNotNull", "NotNull"}, numberOfArguments: 0}
	IsNull      = &PartType{name: "IS_NULL", keywords: []string{"IsNull", "Null"}, numberOfArguments: 0}
	Between     = &PartType{name: "BETWEEN", keywords: []string{"Between"}, numberOfArguments: 2}
	LessThan    = &PartType{name: "LESS_THAN", keywords: []string{"LessThan"}, numberOfArguments: 1}
	GreaterThan = &PartType{name: "GREATER_THAN", keywords: []string{"GreaterThan"}, numberOfArguments: 1}
	NotLike     = &PartType{name: "NOT_LIKE", keywords: []string{"NotLike"}, numberOfArguments: 1}
	Like        = &PartType{name: "LIKE", keywords: []string{"Like"}, numberOfArguments: 1}
	NotEqual    = &PartType{name: "NOT_EQUAL", keywords: []string{"Not"}, numberOfArguments: 1}
	Equal       = &PartType{name: "EQUAL", numberOfArguments: 1}
)

// partTypes lists the keyword-carrying types in detection priority order;
// Equal is the fallback and never listed.
var partTypes = []*PartType{IsNotNull, IsNull, Between, LessThan, GreaterThan, NotLike, Like, NotEqual}

// Name returns the symbolic operator name, e.g. "BETWEEN".
func (t *PartType) Name() string {
	return t.name
}

func (t *PartType) String() string {
	return t.name
}

// NumberOfArguments returns how many method arguments the operator binds:
// 0 for null checks, 2 for Between, 1 otherwise.
func (t *PartType) NumberOfArguments() int {
	return t.numberOfArguments
}

// Keywords returns the keyword suffixes selecting this type.
func (t *PartType) Keywords() []string {
	return append([]string(nil), t.keywords...)
}

// typeFromRaw determines the PartType for a raw clause. A keyword match is
// rejected when the clause as a whole already names a literal property of
// the subject type, which protects fields like "isNull" or "betweenDates"
// from being misparsed as operators.
func typeFromRaw(raw string, subject *typeinfo.TypeInformation) *PartType {
	if subject.HasProperty(uncapitalize(raw)) {
		return Equal
	}

	for _, candidate := range partTypes {
		if candidate.matches(raw) {
			return candidate
		}
	}

	return Equal
}

// matches reports whether the raw clause ends in one of the type's keywords.
// Matching is case-sensitive: keywords start at a camel-case boundary, so a
// property like "Cannot" never triggers the "NotLike" keyword through its
// lower-case tail.
func (t *PartType) matches(raw string) bool {
	for _, keyword := range t.keywords {
		if strings.HasSuffix(raw, keyword) {
			return true
		}
	}
	return false
}

// extractProperty strips the matched keyword suffix from the clause,
// yielding the raw property token.
func (t *PartType) extractProperty(raw string) string {
	for _, keyword := range t.keywords {
		if strings.HasSuffix(raw, keyword) {
			raw = raw[:len(raw)-len(keyword)]
			break
		}
	}
	return uncapitalize(raw)
}

// Part is one parsed predicate fragment of a query method name, immutable
// after creation.
type Part struct {
	path     *path.PropertyPath
	partType *PartType
}

// NewPart parses a single clause against the subject type. An unresolvable
// property token surfaces the underlying PropertyReferenceError.
func NewPart(raw string, subject *typeinfo.TypeInformation) (*Part, error) {
	partType := typeFromRaw(raw, subject)

	propertyPath, err := path.From(partType.extractProperty(raw), subject)
	if err != nil {
		return nil, err
	}

	return &Part{path: propertyPath, partType: partType}, nil
}

// Path returns the resolved property path the predicate applies to.
func (p *Part) Path() *path.PropertyPath {
	return p.path
}

// Property returns the dot notation of the resolved property path.
func (p *Part) Property() string {
	return p.path.DotPath()
}

// Type returns the predicate's operator type.
func (p *Part) Type() *PartType {
	return p.partType
}

// NumberOfArguments returns how many method arguments this part binds.
func (p *Part) NumberOfArguments() int {
	return p.partType.numberOfArguments
}

func (p *Part) String() string {
	return p.Property() + " " + p.partType.name
}

// uncapitalize lower-cases the leading rune of the given token, keeping
// initialisms (two or more leading upper-case runes) intact.
func uncapitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if len(r) > 1 && unicode.IsUpper(r[0]) && unicode.IsUpper(r[1]) {
		return s
	}
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
