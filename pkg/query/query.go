// Package query runs jq expressions over loaded JSON results.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

// Filter is a compiled jq expression.
// Immutable
type Filter struct {
	expr string
	code *gojq.Code
}

// Compile parses and compiles expr.
func Compile(expr string) (*Filter, error) {
	q, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", expr, err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", expr, err)
	}
	return &Filter{expr: expr, code: code}, nil
}

func (f *Filter) String() string {
	return f.expr
}

// Run evaluates the filter against v and collects every output value.
func (f *Filter) Run(ctx context.Context, v any) ([]any, error) {
	iter := f.code.RunWithContext(ctx, normalize(v))
	var results []any
	for {
		res, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := res.(error); ok {
			if err, ok := err.(*gojq.HaltError); ok && err.Value() == nil {
				break
			}
			return nil, fmt.Errorf("query %q: %w", f.expr, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Format evaluates the filter against v and renders each output as
// indented JSON, one value after another.
func (f *Filter) Format(ctx context.Context, v any) (string, error) {
	results, err := f.Run(ctx, v)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return "", fmt.Errorf("encoding query result: %w", err)
		}
	}
	return sb.String(), nil
}

// normalize converts values gojq cannot consume into their JSON form.
func normalize(v any) any {
	switch x := v.(type) {
	case nil, bool, int, float64, string, []any, map[string]any:
		return v
	case []byte:
		return string(x)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return string(data)
	}
	return out
}
