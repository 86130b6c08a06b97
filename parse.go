// Filters from JSON.
//
// Callers that receive queries as JSON (an HTTP layer, a config file) use
// ParseFilter. The encoding follows the familiar document-database
// convention:
//
//	{"name": "Alice"}                                  literal
//	{"name": {"$regex": "clo", "$options": "i"}}       pattern
//	{"age": {"$gte": 18, "$lt": 60}}                   operators
//	{"email": {"$in": ["a@b.com", "c@d.com"]}}         operators
//
// An object value is an operator set only when every key starts with $.
// Any other object is a literal, matched by deep equality.
package mingledb

import (
	"fmt"
	"strings"
)

// ParseFilter decodes a JSON object into a Filter.
func ParseFilter(data []byte) (Filter, error) {
	var doc Document
	if err := doc.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	return FilterFromDocument(doc)
}

// FilterFromDocument converts a filter expressed as a Document.
func FilterFromDocument(doc Document) (Filter, error) {
	f := make(Filter, len(doc))
	for _, field := range doc {
		cond, err := condition(field.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Key, err)
		}
		f[field.Key] = cond
	}
	return f, nil
}

func condition(v Value) (Condition, error) {
	obj, ok := v.AsObject()
	if !ok || len(obj) == 0 || !allOperators(obj) {
		return Literal{Value: v}, nil
	}

	if obj.Has("$regex") {
		return pattern(obj)
	}

	ops := make(Operators, 0, len(obj))
	for _, f := range obj {
		op := Op(f.Key)
		if !op.valid() {
			return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, f.Key)
		}
		if (op == OpIn || op == OpNin) && f.Value.Kind() != KindArray {
			return nil, fmt.Errorf("%w: %s needs an array, got %s", ErrInvalidFilter, op, f.Value.Kind())
		}
		ops = append(ops, Operator{Op: op, Operand: f.Value})
	}
	return ops, nil
}

func allOperators(obj Document) bool {
	for _, f := range obj {
		if !strings.HasPrefix(f.Key, "$") {
			return false
		}
	}
	return true
}

// pattern builds a Pattern from {"$regex": expr, "$options": flags}.
// Supported flags are i (case-insensitive), m (multi-line) and s (dot
// matches newline).
func pattern(obj Document) (Condition, error) {
	var expr, opts string
	for _, f := range obj {
		s, ok := f.Value.AsString()
		switch f.Key {
		case "$regex":
			if !ok {
				return nil, fmt.Errorf("%w: $regex must be a string", ErrInvalidFilter)
			}
			expr = s
		case "$options":
			if !ok {
				return nil, fmt.Errorf("%w: $options must be a string", ErrInvalidFilter)
			}
			opts = s
		default:
			return nil, fmt.Errorf("%w: %s cannot be combined with $regex", ErrInvalidFilter, f.Key)
		}
	}

	for _, flag := range opts {
		if !strings.ContainsRune("ims", flag) {
			return nil, fmt.Errorf("%w: unsupported regex option %q", ErrInvalidPattern, flag)
		}
	}
	if opts != "" {
		expr = "(?" + opts + ")" + expr
	}
	return Regex(expr)
}
