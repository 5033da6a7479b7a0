// Package filter builds the predicate trees the Xemway API accepts for
// server-side record selection.
//
// A tree is made of Filter leaves combined by Collection nodes:
//
//	f := filter.And(
//	    filter.New("session_name", "contains", "20211119"),
//	    filter.New("size", "gt", 1024),
//	)
//
// Operators and logic values are passed through untouched; validating them is
// the server's job.
package filter

import "encoding/json"

// Logic values recognized by the server.
const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

// Logic is the combinator of a Collection. Values other than LogicAnd and
// LogicOr are sent as-is and their meaning is server-defined.
type Logic string

// Value is the set of scalar types a Filter can compare against.
type Value interface {
	~string | ~int | ~int64 | ~float64
}

// Node is any element of a filter tree.
type Node interface {
	// Serialize returns the plain nested wire structure of the node.
	Serialize() map[string]any
}

// Filter is a leaf predicate: field <operator> value.
type Filter struct {
	field    string
	operator string
	value    any
}

// New creates a leaf predicate.
func New[V Value](field, operator string, value V) Filter {
	return Filter{field: field, operator: operator, value: value}
}

// Field returns the field name.
func (f Filter) Field() string { return f.field }

// Operator returns the operator.
func (f Filter) Operator() string { return f.operator }

// Value returns the comparison value.
func (f Filter) Value() any { return f.value }

// WithValue returns a copy of f comparing against value instead.
func (f Filter) WithValue(value any) Filter {
	f.value = value
	return f
}

// Serialize implements Node.
func (f Filter) Serialize() map[string]any {
	return map[string]any{
		"field":    f.field,
		"operator": f.operator,
		"value":    f.value,
	}
}

// MarshalJSON encodes the serialized form.
func (f Filter) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Serialize())
}

// Collection combines child nodes with a logic operator.
type Collection struct {
	logic   Logic
	filters []Node
}

// NewCollection creates a collection. The children are copied.
func NewCollection(logic Logic, filters ...Node) Collection {
	return Collection{logic: logic, filters: compact(filters)}
}

// And is shorthand for NewCollection(LogicAnd, filters...).
func And(filters ...Node) Collection {
	return NewCollection(LogicAnd, filters...)
}

// Or is shorthand for NewCollection(LogicOr, filters...).
func Or(filters ...Node) Collection {
	return NewCollection(LogicOr, filters...)
}

// Logic returns the combinator.
func (c Collection) Logic() Logic { return c.logic }

// Filters returns a copy of the children in insertion order.
func (c Collection) Filters() []Node {
	out := make([]Node, len(c.filters))
	copy(out, c.filters)
	return out
}

// Len returns the number of children.
func (c Collection) Len() int { return len(c.filters) }

// Append returns a new collection with filters added after the existing
// children. c is left unchanged.
func (c Collection) Append(filters ...Node) Collection {
	merged := make([]Node, 0, len(c.filters)+len(filters))
	merged = append(merged, c.filters...)
	merged = append(merged, filters...)
	return Collection{logic: c.logic, filters: compact(merged)}
}

// Serialize implements Node. An empty collection serializes to an empty
// filter list, which matches everything.
func (c Collection) Serialize() map[string]any {
	children := make([]any, 0, len(c.filters))
	for _, f := range c.filters {
		children = append(children, f.Serialize())
	}
	return map[string]any{
		"logic":   string(c.logic),
		"filters": children,
	}
}

// MarshalJSON encodes the serialized form.
func (c Collection) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Serialize())
}

// Combine joins the non-nil nodes with "and". It returns nil when every node
// is nil.
func Combine(nodes ...Node) Node {
	present := compact(nodes)
	if len(present) == 0 {
		return nil
	}
	return Collection{logic: LogicAnd, filters: present}
}

// compact copies nodes, dropping nil entries.
func compact(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
