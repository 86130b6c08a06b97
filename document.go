// Ordered documents.
//
// A Document keeps fields in insertion order so that a document decoded
// from disk reads back exactly as it was written. Keys are unique: Set
// replaces an existing field in place and appends new ones at the end.
package mingledb

import (
	"fmt"
	"strings"
)

// Field is a single key/value pair in a Document.
type Field struct {
	Key   string
	Value Value
}

// Document is an ordered mapping from field name to value.
type Document []Field

// D builds a Document from alternating keys and values, converting each
// value with ValueOf. It panics on an odd argument count, a non-string key
// or an unsupported value, so it is meant for literals in code and tests.
func D(kv ...any) Document {
	if len(kv)%2 != 0 {
		panic("mingledb.D: odd number of arguments")
	}
	doc := make(Document, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("mingledb.D: key %v is %T, not string", kv[i], kv[i]))
		}
		doc.Set(key, MustValue(kv[i+1]))
	}
	return doc
}

// Get returns the value stored under key and whether the key is present.
func (d Document) Get(key string) (Value, bool) {
	for _, f := range d {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Has reports whether key is present, including when its value is null.
func (d Document) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Set stores v under key, replacing an existing field in place.
func (d *Document) Set(key string, v Value) {
	for i := range *d {
		if (*d)[i].Key == key {
			(*d)[i].Value = v
			return
		}
	}
	*d = append(*d, Field{Key: key, Value: v})
}

// Keys returns field names in document order.
func (d Document) Keys() []string {
	keys := make([]string, len(d))
	for i, f := range d {
		keys[i] = f.Key
	}
	return keys
}

// Clone returns a copy that shares no field storage with d. Nested
// values are immutable once built, so a shallow copy of the field slice
// is enough.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	copy(out, d)
	return out
}

// Merge returns a shallow merge of update over d. Fields present in both
// take the update's value at d's position; fields only in update are
// appended in update order. d itself is not modified.
func (d Document) Merge(update Document) Document {
	out := d.Clone()
	if out == nil {
		out = make(Document, 0, len(update))
	}
	for _, f := range update {
		out.Set(f.Key, f.Value)
	}
	return out
}

// Equal reports whether both documents hold the same keys with equal
// values. Field order is ignored.
func (d Document) Equal(o Document) bool {
	if len(d) != len(o) {
		return false
	}
	for _, f := range d {
		ov, ok := o.Get(f.Key)
		if !ok || !f.Value.Equal(ov) {
			return false
		}
	}
	return true
}

// validate rejects documents assembled by hand with a repeated key, at
// any depth. Such a document would decode differently from how it was
// written.
func (d Document) validate() error {
	seen := make(map[string]bool, len(d))
	for _, f := range d {
		if seen[f.Key] {
			return fmt.Errorf("%w: duplicate key %q", ErrInvalidValue, f.Key)
		}
		seen[f.Key] = true
		if err := f.Value.validate(); err != nil {
			return fmt.Errorf("field %q: %w", f.Key, err)
		}
	}
	return nil
}

func (v Value) validate() error {
	switch v.kind {
	case KindObject:
		return v.obj.validate()
	case KindArray:
		for i, e := range v.arr {
			if err := e.validate(); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
	}
	return nil
}

// Map converts the document to a plain map, losing field order.
func (d Document) Map() map[string]any {
	m := make(map[string]any, len(d))
	for _, f := range d {
		m[f.Key] = f.Value.Interface()
	}
	return m
}

func (d Document) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range d {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q:%s", f.Key, f.Value)
	}
	b.WriteByte('}')
	return b.String()
}
