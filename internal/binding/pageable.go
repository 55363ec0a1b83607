package binding

import "fmt"

// Direction is the ordering direction of a sort order.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// Order pairs a property path with a sort direction.
type Order struct {
	Property  string
	Direction Direction
}

func (o Order) String() string {
	return fmt.Sprintf("%s %s", o.Property, o.Direction)
}

// Sort is an ordered list of sort orders. The zero value is unsorted.
type Sort struct {
	Orders []Order
}

// SortBy creates an ascending sort over the given property paths.
func SortBy(properties ...string) Sort {
	orders := make([]Order, 0, len(properties))
	for _, property := range properties {
		orders = append(orders, Order{Property: property, Direction: Asc})
	}
	return Sort{Orders: orders}
}

// IsSorted reports whether the sort carries any orders.
func (s Sort) IsSorted() bool {
	return len(s.Orders) > 0
}

// And concatenates two sorts, keeping the receiver's orders first.
func (s Sort) And(other Sort) Sort {
	if !other.IsSorted() {
		return s
	}
	if !s.IsSorted() {
		return other
	}
	combined := make([]Order, 0, len(s.Orders)+len(other.Orders))
	combined = append(combined, s.Orders...)
	combined = append(combined, other.Orders...)
	return Sort{Orders: combined}
}

// Pageable is a paging request: a zero-based page number, a page size and an
// optional sort.
type Pageable struct {
	Page int
	Size int
	Sort Sort
}

// PageRequest creates a Pageable for the given zero-based page and size.
func PageRequest(page, size int) Pageable {
	return Pageable{Page: page, Size: size}
}

// Offset returns the element offset the page starts at.
func (p Pageable) Offset() int {
	return p.Page * p.Size
}
