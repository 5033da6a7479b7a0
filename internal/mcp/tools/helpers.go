// Package tools contains the MCP tool implementations for the Xemway
// service.
package tools

import (
	"fmt"
	"math"
	"strings"

	"github.com/xemway/xemway-files/pkg/filter"
)

// FilterInput is one field predicate supplied by a tool caller.
type FilterInput struct {
	Field    string `json:"field" jsonschema:"Record field to compare, e.g. session_name"`
	Operator string `json:"operator" jsonschema:"Server operator, e.g. contains, eq, gt"`
	Value    any    `json:"value" jsonschema:"String or number to compare against"`
}

// buildFilter turns caller predicates into a collection combined with logic
// ("and" when empty). It returns nil when there are no predicates.
func buildFilter(logic string, inputs []FilterInput) (filter.Node, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	l := filter.LogicAnd
	switch strings.ToLower(logic) {
	case "", "and":
	case "or":
		l = filter.LogicOr
	default:
		return nil, ErrInvalidInput(fmt.Sprintf("logic must be 'and' or 'or', got %q", logic))
	}

	nodes := make([]filter.Node, 0, len(inputs))
	for i, in := range inputs {
		if in.Field == "" || in.Operator == "" {
			return nil, ErrInvalidInput(fmt.Sprintf("filters[%d]: field and operator are required", i))
		}
		f, err := leaf(in)
		if err != nil {
			return nil, ErrInvalidInput(fmt.Sprintf("filters[%d]: %v", i, err))
		}
		nodes = append(nodes, f)
	}
	return filter.NewCollection(l, nodes...), nil
}

func leaf(in FilterInput) (filter.Filter, error) {
	switch v := in.Value.(type) {
	case string:
		return filter.New(in.Field, in.Operator, v), nil
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return filter.New(in.Field, in.Operator, int64(v)), nil
		}
		return filter.New(in.Field, in.Operator, v), nil
	case int:
		return filter.New(in.Field, in.Operator, v), nil
	case int64:
		return filter.New(in.Field, in.Operator, v), nil
	}
	return filter.Filter{}, fmt.Errorf("value must be a string or a number, got %T", in.Value)
}
