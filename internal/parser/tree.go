package parser

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/nlstn/go-repository/internal/binding"
	"github.com/nlstn/go-repository/internal/path"
	"github.com/nlstn/go-repository/internal/typeinfo"
)

// Tree is the parsed predicate of a query method name: groups of And-joined
// parts, the groups themselves joined by Or, plus an optional static sort
// from a trailing OrderBy clause. Trees are immutable once parsed.
type Tree struct {
	groups [][]*Part
	sort   binding.Sort
}

// Parse splits the predicate-bearing source (the method name with its query
// intent prefix already removed) on the top-level Or and And separators and
// parses each clause into a Part against the subject type. Parsing fails
// eagerly on the first unresolvable clause so broken derivations surface
// before first invocation.
func Parse(source string, subject *typeinfo.TypeInformation) (*Tree, error) {
	if subject == nil {
		return nil, fmt.Errorf("subject type must not be nil")
	}
	if source == "" {
		return nil, fmt.Errorf("query predicate must not be empty")
	}

	predicate, sort, err := splitOrderBy(source, subject)
	if err != nil {
		return nil, err
	}
	if predicate == "" {
		return nil, fmt.Errorf("query method %q declares no predicate before OrderBy", source)
	}

	tree := &Tree{sort: sort}

	for _, orClause := range splitKeyword(predicate, "Or") {
		group := make([]*Part, 0, 1)
		for _, andClause := range splitKeyword(orClause, "And") {
			part, err := NewPart(andClause, subject)
			if err != nil {
				return nil, err
			}
			group = append(group, part)
		}
		tree.groups = append(tree.groups, group)
	}

	return tree, nil
}

// splitOrderBy separates a trailing OrderBy clause from the predicate and
// parses it into a static sort. OrderBy must not appear more than once.
func splitOrderBy(source string, subject *typeinfo.TypeInformation) (string, binding.Sort, error) {
	idx := strings.Index(source, "OrderBy")
	if idx < 0 {
		return source, binding.Sort{}, nil
	}
	if strings.Contains(source[idx+len("OrderBy"):], "OrderBy") {
		return "", binding.Sort{}, fmt.Errorf("OrderBy must not be used more than once in a method name")
	}

	clause := source[idx+len("OrderBy"):]
	sort, err := parseOrderBy(clause, subject)
	if err != nil {
		return "", binding.Sort{}, err
	}

	return source[:idx], sort, nil
}

// parseOrderBy parses a clause like "LastnameAscAgeDesc" into sort orders.
// A property without a trailing Asc or Desc sorts ascending.
func parseOrderBy(clause string, subject *typeinfo.TypeInformation) (binding.Sort, error) {
	if clause == "" {
		return binding.Sort{}, fmt.Errorf("OrderBy must be followed by a property")
	}

	var orders []binding.Order

	appendOrder := func(property string, direction binding.Direction) error {
		if property == "" {
			return fmt.Errorf("OrderBy clause %q names a direction without a property", clause)
		}
		// Validate the property eagerly; broken sort clauses are as fatal
		// as broken predicates.
		resolved, err := path.From(uncapitalize(property), subject)
		if err != nil {
			return err
		}
		orders = append(orders, binding.Order{Property: resolved.DotPath(), Direction: direction})
		return nil
	}

	property := ""
	for _, token := range camelTokens(clause) {
		switch token {
		case "Asc":
			if err := appendOrder(property, binding.Asc); err != nil {
				return binding.Sort{}, err
			}
			property = ""
		case "Desc":
			if err := appendOrder(property, binding.Desc); err != nil {
				return binding.Sort{}, err
			}
			property = ""
		default:
			property += token
		}
	}

	if property != "" {
		if err := appendOrder(property, binding.Asc); err != nil {
			return binding.Sort{}, err
		}
	}

	return binding.Sort{Orders: orders}, nil
}

// camelTokens splits a camel-case clause into its upper-case-started tokens.
func camelTokens(source string) []string {
	var tokens []string
	runes := []rune(source)
	start := 0
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) {
			tokens = append(tokens, string(runes[start:i]))
			start = i
		}
	}
	tokens = append(tokens, string(runes[start:]))
	return tokens
}

// splitKeyword splits the source on occurrences of the keyword that sit at
// a camel-case boundary: the keyword must be followed by an upper-case rune
// and must not open the source. Keywords embedded in property names, such
// as the "Or" in "Organization", never match.
func splitKeyword(source, keyword string) []string {
	var parts []string
	remaining := source

	for {
		idx := keywordIndex(remaining, keyword)
		if idx < 0 {
			parts = append(parts, remaining)
			return parts
		}
		parts = append(parts, remaining[:idx])
		remaining = remaining[idx+len(keyword):]
	}
}

// keywordIndex finds the first splittable occurrence of the keyword.
func keywordIndex(source, keyword string) int {
	offset := 0
	for {
		idx := strings.Index(source[offset:], keyword)
		if idx < 0 {
			return -1
		}
		idx += offset

		rest := source[idx+len(keyword):]
		if idx > 0 && rest != "" && unicode.IsUpper([]rune(rest)[0]) {
			return idx
		}
		offset = idx + 1
	}
}

// Parts returns the parsed parts, flattened in declaration order.
func (t *Tree) Parts() []*Part {
	var parts []*Part
	for _, group := range t.groups {
		parts = append(parts, group...)
	}
	return parts
}

// OrGroups returns the Or-joined groups of And-joined parts.
func (t *Tree) OrGroups() [][]*Part {
	groups := make([][]*Part, len(t.groups))
	for i, group := range t.groups {
		groups[i] = append([]*Part(nil), group...)
	}
	return groups
}

// NumberOfArguments totals the method arguments bound by all parts. The
// result determines how many bindable method parameters are required.
func (t *Tree) NumberOfArguments() int {
	total := 0
	for _, group := range t.groups {
		for _, part := range group {
			total += part.NumberOfArguments()
		}
	}
	return total
}

// Sort returns the static sort derived from the OrderBy clause; the zero
// Sort when none was declared.
func (t *Tree) Sort() binding.Sort {
	return t.sort
}

func (t *Tree) String() string {
	var clauses []string
	for _, group := range t.groups {
		var ands []string
		for _, part := range group {
			ands = append(ands, part.String())
		}
		clauses = append(clauses, strings.Join(ands, " AND "))
	}
	return strings.Join(clauses, " OR ")
}
