package mingledb

import (
	"errors"
	"testing"
)

var userSchema = Schema{
	{Field: "name", Rule: Rule{Type: TypeString, Required: true}},
	{Field: "email", Rule: Rule{Type: TypeString, Required: true, Unique: true}},
	{Field: "age", Rule: Rule{Type: TypeNumber}},
}

func TestValidate(t *testing.T) {
	existing := []Document{
		D("name", "Alice", "email", "alice@x.com", "age", 30),
	}

	tests := []struct {
		name  string
		doc   Document
		kind  error
		field string
	}{
		{"valid", D("name", "Bob", "email", "bob@x.com", "age", 25), nil, ""},
		{"optional absent", D("name", "Bob", "email", "bob@x.com"), nil, ""},
		{"optional null", D("name", "Bob", "email", "bob@x.com", "age", nil), nil, ""},
		{"extra fields", D("name", "Bob", "email", "bob@x.com", "zzz", true), nil, ""},
		{"missing required", D("email", "bob@x.com"), ErrMissingRequiredField, "name"},
		{"null required", D("name", nil, "email", "bob@x.com"), ErrMissingRequiredField, "name"},
		{"wrong type", D("name", "Bob", "email", "bob@x.com", "age", "old"), ErrTypeMismatch, "age"},
		{"duplicate unique", D("name", "Carol", "email", "alice@x.com"), ErrDuplicateUniqueValue, "email"},
		{"first failure wins", D("name", 5, "email", "alice@x.com"), ErrTypeMismatch, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(userSchema, tt.doc, existing)
			if tt.kind == nil {
				if err != nil {
					t.Fatalf("validate: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.kind) {
				t.Fatalf("err = %v, want %v", err, tt.kind)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Errorf("field = %+v, want %q", ve, tt.field)
			}
		})
	}
}

func TestValidateDeclarationOrder(t *testing.T) {
	s := Schema{
		{Field: "b", Rule: Rule{Required: true}},
		{Field: "a", Rule: Rule{Required: true}},
	}
	err := validate(s, D(), nil)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "b" {
		t.Errorf("first reported field = %+v, want b", ve)
	}
}

func TestValidateUniqueDeepEquality(t *testing.T) {
	s := Schema{{Field: "tag", Rule: Rule{Unique: true}}}
	existing := []Document{D("tag", D("a", 1, "b", []any{1, 2}))}

	err := validate(s, D("tag", D("b", []any{1, 2}, "a", 1)), existing)
	if !errors.Is(err, ErrDuplicateUniqueValue) {
		t.Errorf("reordered object: err = %v, want duplicate", err)
	}
	if err := validate(s, D("tag", D("a", 1, "b", []any{2, 1})), existing); err != nil {
		t.Errorf("different array order: %v", err)
	}
	if err := validate(s, D("tag", "1"), []Document{D("tag", 1)}); err != nil {
		t.Errorf("string vs number: %v", err)
	}
}

func TestValidateUniqueIgnoresNull(t *testing.T) {
	s := Schema{{Field: "code", Rule: Rule{Unique: true}}}
	existing := []Document{D("code", nil), D("other", 1)}
	if err := validate(s, D("code", nil), existing); err != nil {
		t.Errorf("null unique value: %v", err)
	}
	if err := validate(s, D(), existing); err != nil {
		t.Errorf("absent unique value: %v", err)
	}
}

func TestValidateTypes(t *testing.T) {
	values := map[Type]Value{
		TypeString:  String("s"),
		TypeNumber:  Int(1),
		TypeBoolean: Bool(true),
		TypeObject:  Object(D("k", 1)),
		TypeArray:   Array(Int(1)),
	}
	for typ := range values {
		s := Schema{{Field: "f", Rule: Rule{Type: typ}}}
		for vtyp, v := range values {
			err := validate(s, Document{{"f", v}}, nil)
			if vtyp == typ && err != nil {
				t.Errorf("%s accepts %s: %v", typ, v, err)
			}
			if vtyp != typ && !errors.Is(err, ErrTypeMismatch) {
				t.Errorf("%s with %s: err = %v, want ErrTypeMismatch", typ, v, err)
			}
		}
	}

	untyped := Schema{{Field: "f", Rule: Rule{Required: true}}}
	for _, v := range values {
		if err := validate(untyped, Document{{"f", v}}, nil); err != nil {
			t.Errorf("untyped rule rejects %s: %v", v, err)
		}
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Kind: ErrTypeMismatch, Field: "age", Want: TypeNumber}
	if got, want := err.Error(), `validation: field "age" must be of type number`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	err = &ValidationError{Kind: ErrMissingRequiredField, Field: "name"}
	if got, want := err.Error(), `validation: field "name": missing required field`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestSchemaValidate(t *testing.T) {
	bad := map[string]Schema{
		"empty field": {{Field: ""}},
		"duplicate":   {{Field: "a"}, {Field: "a"}},
		"bad type":    {{Field: "a", Rule: Rule{Type: "date"}}},
	}
	for name, s := range bad {
		if err := s.Validate(); !errors.Is(err, ErrInvalidSchema) {
			t.Errorf("%s: err = %v, want ErrInvalidSchema", name, err)
		}
	}
	if err := userSchema.Validate(); err != nil {
		t.Errorf("userSchema: %v", err)
	}
}

func TestParseSchema(t *testing.T) {
	s, err := ParseSchema([]byte(`{
		"name":  {"type": "string", "required": true},
		"email": {"type": "string", "required": true, "unique": true},
		"age":   {"type": "number"},
		"meta":  {}
	}`))
	if err != nil {
		t.Fatalf("ParseSchema: %v", err)
	}
	want := append(Schema{}, userSchema...)
	want = append(want, FieldRule{Field: "meta"})
	if len(s) != len(want) {
		t.Fatalf("ParseSchema = %+v", s)
	}
	for i := range want {
		if s[i] != want[i] {
			t.Errorf("rule %d = %+v, want %+v", i, s[i], want[i])
		}
	}
}

func TestParseSchemaErrors(t *testing.T) {
	inputs := []string{
		`not json`,
		`[]`,
		`{"a": "string"}`,
		`{"a": {"type": 1}}`,
		`{"a": {"type": "date"}}`,
		`{"a": {"required": "yes"}}`,
		`{"a": {"unique": 1}}`,
		`{"a": {"index": true}}`,
	}
	for _, in := range inputs {
		if _, err := ParseSchema([]byte(in)); !errors.Is(err, ErrInvalidSchema) {
			t.Errorf("ParseSchema(%s): err = %v, want ErrInvalidSchema", in, err)
		}
	}
}
