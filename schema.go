// Per-collection schema validation.
//
// A Schema is an ordered list of field rules. Validation walks the rules
// in declaration order and stops at the first failure, so the error a
// caller sees depends on the schema's field order, not the document's.
//
// Uniqueness is checked against the collection's current contents on
// every insert. There is no persistent index: the existing documents are
// fingerprinted into a uniqueIndex for the duration of one call.
package mingledb

import (
	"fmt"

	"go.uber.org/zap"
)

// Type names a value type a schema field may require.
type Type string

const (
	TypeAny     Type = "" // no type check
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeObject  Type = "object"
	TypeArray   Type = "array"
)

func (t Type) kind() (Kind, bool) {
	switch t {
	case TypeString:
		return KindString, true
	case TypeNumber:
		return KindNumber, true
	case TypeBoolean:
		return KindBool, true
	case TypeObject:
		return KindObject, true
	case TypeArray:
		return KindArray, true
	}
	return 0, false
}

// Rule constrains a single field.
type Rule struct {
	Type     Type
	Required bool // absent or null fails
	Unique   bool // no two documents may share a non-null value
}

// FieldRule binds a Rule to a field name.
type FieldRule struct {
	Field string
	Rule
}

// Schema is an ordered set of field rules.
type Schema []FieldRule

// Validate checks the schema itself: every field named once, every type
// known.
func (s Schema) Validate() error {
	seen := make(map[string]bool, len(s))
	for _, r := range s {
		if r.Field == "" {
			return fmt.Errorf("%w: empty field name", ErrInvalidSchema)
		}
		if seen[r.Field] {
			return fmt.Errorf("%w: field %q declared twice", ErrInvalidSchema, r.Field)
		}
		seen[r.Field] = true
		if _, ok := r.Type.kind(); !ok && r.Type != TypeAny {
			return fmt.Errorf("%w: field %q: unknown type %q", ErrInvalidSchema, r.Field, r.Type)
		}
	}
	return nil
}

// check validates doc against the rules, using ix for uniqueness.
func (s Schema) check(doc Document, ix *uniqueIndex) error {
	for _, r := range s {
		v, ok := doc.Get(r.Field)
		present := ok && !v.IsNull()

		if !present {
			if r.Required {
				return &ValidationError{Kind: ErrMissingRequiredField, Field: r.Field}
			}
			// Null on an optional field counts as absent, not as a type.
			continue
		}

		if want, ok := r.Type.kind(); ok && v.Kind() != want {
			return &ValidationError{Kind: ErrTypeMismatch, Field: r.Field, Want: r.Type}
		}

		if r.Unique && ix.contains(r.Field, v) {
			return &ValidationError{Kind: ErrDuplicateUniqueValue, Field: r.Field}
		}
	}
	return nil
}

// validate checks doc against s with existing as the collection contents.
// A nil schema accepts everything.
func validate(s Schema, doc Document, existing []Document) error {
	if len(s) == 0 {
		return nil
	}
	return s.check(doc, newUniqueIndex(s, existing))
}

// logRejected records a validation failure at debug level.
func (db *DB) logRejected(collection string, err error) {
	if ve, ok := err.(*ValidationError); ok {
		db.log.Debug("document rejected",
			zap.String("collection", collection),
			zap.String("field", ve.Field),
			zap.Error(ve.Kind))
	}
}

// ParseSchema reads a schema from a JSON object, keeping field order:
//
//	{
//	  "name":  {"type": "string", "required": true},
//	  "email": {"type": "string", "required": true, "unique": true},
//	  "age":   {"type": "number"}
//	}
func ParseSchema(data []byte) (Schema, error) {
	var doc Document
	if err := doc.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}

	s := make(Schema, 0, len(doc))
	for _, f := range doc {
		rule, ok := f.Value.AsObject()
		if !ok {
			return nil, fmt.Errorf("%w: field %q: rule must be an object", ErrInvalidSchema, f.Key)
		}
		fr := FieldRule{Field: f.Key}
		for _, opt := range rule {
			switch opt.Key {
			case "type":
				t, ok := opt.Value.AsString()
				if !ok {
					return nil, fmt.Errorf("%w: field %q: type must be a string", ErrInvalidSchema, f.Key)
				}
				fr.Type = Type(t)
			case "required":
				b, ok := opt.Value.AsBool()
				if !ok {
					return nil, fmt.Errorf("%w: field %q: required must be a boolean", ErrInvalidSchema, f.Key)
				}
				fr.Required = b
			case "unique":
				b, ok := opt.Value.AsBool()
				if !ok {
					return nil, fmt.Errorf("%w: field %q: unique must be a boolean", ErrInvalidSchema, f.Key)
				}
				fr.Unique = b
			default:
				return nil, fmt.Errorf("%w: field %q: unknown option %q", ErrInvalidSchema, f.Key, opt.Key)
			}
		}
		s = append(s, fr)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
