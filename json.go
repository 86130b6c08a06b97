// JSON encoding for documents and values.
//
// encoding/json maps objects to Go maps and loses field order, so
// documents are decoded token by token instead. Numbers are read with
// UseNumber to keep integers exact until they are converted to float64.
package mingledb

import (
	"bytes"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// MarshalJSON writes the document as a JSON object in field order.
func (d Document) MarshalJSON() ([]byte, error) {
	return appendDocumentJSON(nil, d)
}

// UnmarshalJSON reads a JSON object, preserving key order. Duplicate keys
// keep the last value at the first key's position.
func (d *Document) UnmarshalJSON(data []byte) error {
	v, err := decodeJSON(data)
	if err != nil {
		return err
	}
	obj, ok := v.AsObject()
	if !ok {
		return fmt.Errorf("%w: document must be a JSON object, got %s", ErrInvalidValue, v.Kind())
	}
	*d = obj
	return nil
}

// MarshalJSON writes the value in its natural JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	return appendValueJSON(nil, v)
}

// UnmarshalJSON reads any JSON value.
func (v *Value) UnmarshalJSON(data []byte) error {
	out, err := decodeJSON(data)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func appendDocumentJSON(buf []byte, d Document) ([]byte, error) {
	buf = append(buf, '{')
	for i, f := range d {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		if buf, err = appendValueJSON(buf, f.Value); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Key, err)
		}
	}
	return append(buf, '}'), nil
}

func appendValueJSON(buf []byte, v Value) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return append(buf, "null"...), nil
	case KindBool:
		if v.b {
			return append(buf, "true"...), nil
		}
		return append(buf, "false"...), nil
	case KindString:
		s, err := json.Marshal(v.str)
		if err != nil {
			return nil, err
		}
		return append(buf, s...), nil
	case KindNumber:
		n, err := json.Marshal(v.num)
		if err != nil {
			return nil, err
		}
		return append(buf, n...), nil
	case KindObject:
		return appendDocumentJSON(buf, v.obj)
	case KindArray:
		buf = append(buf, '[')
		for i, e := range v.arr {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			if buf, err = appendValueJSON(buf, e); err != nil {
				return nil, err
			}
		}
		return append(buf, ']'), nil
	}
	return nil, fmt.Errorf("%w: kind %s", ErrInvalidValue, v.kind)
}

// decodeJSON parses exactly one JSON value from data.
func decodeJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := readJSONValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("%w: trailing data after JSON value", ErrInvalidValue)
	}
	return v, nil
}

func readJSONValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return jsonTokenValue(dec, tok)
}

func jsonTokenValue(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: number %s: %w", ErrInvalidValue, t, err)
		}
		return Number(f), nil
	case float64:
		return Number(t), nil
	case json.Delim:
		switch t {
		case '{':
			doc := Document{}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return Value{}, fmt.Errorf("%w: object key %v", ErrInvalidValue, kt)
				}
				fv, err := readJSONValue(dec)
				if err != nil {
					return Value{}, err
				}
				doc.Set(key, fv)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Object(doc), nil
		case '[':
			arr := []Value{}
			for dec.More() {
				ev, err := readJSONValue(dec)
				if err != nil {
					return Value{}, err
				}
				arr = append(arr, ev)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Array(arr...), nil
		}
	}
	return Value{}, fmt.Errorf("%w: unexpected JSON token %v", ErrInvalidValue, tok)
}
