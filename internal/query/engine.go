// Package query provides jq projections over session file records.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

// Engine evaluates jq expressions against decoded JSON records.
type Engine struct{}

// NewEngine creates a new query engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Result contains the values produced by a projection.
type Result struct {
	Values   []any    `json:"values"`           // Extracted values
	Errors   []string `json:"errors,omitempty"` // Per-record errors (e.g., type mismatch)
	RawCount int      `json:"raw_count"`        // Count before deduplication
}

// Options controls a projection run.
type Options struct {
	Deduplicate bool // drop repeated values
	MaxResults  int  // stop after this many values, 0 = unlimited
}

// Compile parses and compiles expression once so it can be reused across
// many records.
func (e *Engine) Compile(expression string) (*gojq.Code, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		var parseErr *gojq.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("invalid jq expression at position %d: %w", parseErr.Offset, err)
		}
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}
	return code, nil
}

// ValidateExpression checks if a jq expression is valid without executing it.
func (e *Engine) ValidateExpression(expression string) error {
	_, err := e.Compile(expression)
	return err
}

// Query runs expression against every record. Labels identify each record in
// error messages (e.g., session names); a missing label falls back to the
// record index.
func (e *Engine) Query(records []any, labels []string, expression string, opts Options) (*Result, error) {
	code, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Values: make([]any, 0),
	}
	seen := make(map[string]bool)
	seenErrors := make(map[string]bool)

	for i, record := range records {
		if opts.MaxResults > 0 && len(result.Values) >= opts.MaxResults {
			break
		}

		label := fmt.Sprintf("record[%d]", i)
		if i < len(labels) && labels[i] != "" {
			label = labels[i]
		}

		input, err := normalize(record)
		if err != nil {
			errMsg := fmt.Sprintf("%s: %v", label, err)
			if !seenErrors[errMsg] {
				result.Errors = append(result.Errors, errMsg)
				seenErrors[errMsg] = true
			}
			continue
		}

		iter := code.Run(input)
		for {
			if opts.MaxResults > 0 && len(result.Values) >= opts.MaxResults {
				break
			}

			v, ok := iter.Next()
			if !ok {
				break
			}

			if err, isErr := v.(error); isErr {
				errMsg := formatJQError(label, err)
				if !seenErrors[errMsg] {
					result.Errors = append(result.Errors, errMsg)
					seenErrors[errMsg] = true
				}
				continue
			}

			if v == nil {
				continue
			}

			result.RawCount++

			if opts.Deduplicate {
				key := valueKey(v)
				if seen[key] {
					continue
				}
				seen[key] = true
			}

			result.Values = append(result.Values, v)
		}
	}

	return result, nil
}

// normalize converts a record into the plain JSON value types gojq accepts.
func normalize(record any) (any, error) {
	switch record.(type) {
	case nil, bool, string, float64, []any, map[string]any:
		return record, nil
	}
	b, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return v, nil
}

// formatJQError creates a helpful error message for jq execution errors.
//
// Runtime jq errors (like "cannot iterate over: null") are plain errors
// without typed wrappers in gojq, so the hints rely on string matching.
// They only decorate display messages.
func formatJQError(label string, err error) string {
	var haltErr *gojq.HaltError
	if errors.As(err, &haltErr) {
		if haltErr.Value() == nil {
			return fmt.Sprintf("%s: query halted", label)
		}
		return fmt.Sprintf("%s: query halted with: %v", label, haltErr.Value())
	}

	errStr := err.Error()

	var hint string
	switch {
	case strings.Contains(errStr, "cannot iterate over: null"):
		hint = " (the field may not exist on this record)"
	case strings.Contains(errStr, "cannot index") && strings.Contains(errStr, "with"):
		hint = " (field not found or wrong type)"
	}

	return fmt.Sprintf("%s: %s%s", label, errStr, hint)
}

// valueKey creates a string key for deduplication.
func valueKey(v any) string {
	switch val := v.(type) {
	case string:
		return "s:" + val
	case float64:
		return fmt.Sprintf("n:%v", val)
	case int:
		return fmt.Sprintf("n:%v", val)
	case bool:
		return fmt.Sprintf("b:%v", val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("?:%v", val)
		}
		return "j:" + string(b)
	}
}
