// MessagePack serialization of documents.
//
// Documents encode as msgpack maps in field order; nested objects and
// arrays recurse. Integral numbers are written as msgpack integers, which
// keeps typical documents compact, and every numeric code decodes back to
// float64. Decoding peeks at the next code byte to pick the variant, so no
// intermediate map[string]any is built and field order survives.
package mingledb

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

var (
	_ msgpack.CustomEncoder = Document(nil)
	_ msgpack.CustomDecoder = (*Document)(nil)
	_ msgpack.CustomEncoder = Value{}
	_ msgpack.CustomDecoder = (*Value)(nil)
)

// EncodeMsgpack implements msgpack.CustomEncoder.
func (d Document) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(d)); err != nil {
		return err
	}
	for _, f := range d {
		if err := enc.EncodeString(f.Key); err != nil {
			return err
		}
		if err := f.Value.EncodeMsgpack(enc); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (d *Document) DecodeMsgpack(dec *msgpack.Decoder) error {
	doc, err := decodeDocument(dec, nil)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// remaining reports how many undecoded bytes are left in the input, or is
// nil when the input length is unknown.
type remaining func() int

// entries checks a map or array length read from a header against the
// input left. Every entry takes at least one byte, so a larger count is a
// lie and must be rejected before anything is allocated for it. The
// returned capacity is safe to preallocate.
func entries(n int, left remaining) (int, error) {
	if left == nil {
		return min(n, 64), nil
	}
	if n > left() {
		return 0, fmt.Errorf("%w: %d entries declared, %d bytes left", ErrInvalidValue, n, left())
	}
	return n, nil
}

func decodeDocument(dec *msgpack.Decoder, left remaining) (Document, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: nil map where document expected", ErrInvalidValue)
	}
	size, err := entries(n, left)
	if err != nil {
		return nil, err
	}
	doc := make(Document, 0, size)
	for range n {
		key, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(dec, left)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		doc.Set(key, v)
	}
	return doc, nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v.kind {
	case KindNull:
		return enc.EncodeNil()
	case KindString:
		return enc.EncodeString(v.str)
	case KindNumber:
		if integral(v.num) {
			return enc.EncodeInt(int64(v.num))
		}
		return enc.EncodeFloat64(v.num)
	case KindBool:
		return enc.EncodeBool(v.b)
	case KindObject:
		return v.obj.EncodeMsgpack(enc)
	case KindArray:
		if err := enc.EncodeArrayLen(len(v.arr)); err != nil {
			return err
		}
		for _, e := range v.arr {
			if err := e.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: kind %s", ErrInvalidValue, v.kind)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	val, err := decodeValue(dec, nil)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func decodeValue(dec *msgpack.Decoder, left remaining) (Value, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return Value{}, err
	}
	switch {
	case c == msgpcode.Nil:
		return Null(), dec.DecodeNil()
	case c == msgpcode.True || c == msgpcode.False:
		b, err := dec.DecodeBool()
		if err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case msgpcode.IsString(c):
		s, err := dec.DecodeString()
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		doc, err := decodeDocument(dec, left)
		if err != nil {
			return Value{}, err
		}
		return Object(doc), nil
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return Value{}, err
		}
		if n < 0 {
			return Null(), nil
		}
		size, err := entries(n, left)
		if err != nil {
			return Value{}, err
		}
		arr := make([]Value, 0, size)
		for i := range n {
			e, err := decodeValue(dec, left)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			arr = append(arr, e)
		}
		return Array(arr...), nil
	default:
		// Anything else must be numeric; DecodeFloat64 rejects the rest
		// (bin, ext, timestamps).
		f, err := dec.DecodeFloat64()
		if err != nil {
			return Value{}, err
		}
		return Number(f), nil
	}
}

// marshalDocument serializes d with a pooled encoder.
func marshalDocument(d Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	enc.Reset(&buf)
	err := d.EncodeMsgpack(enc)
	msgpack.PutEncoder(enc)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// unmarshalDocument parses exactly one document from data. Trailing bytes
// are an error: a frame holds one document and nothing else. A
// bytes.Reader is a ByteScanner, so the decoder reads it unbuffered and
// r.Len is exactly what is left to decode.
func unmarshalDocument(data []byte) (Document, error) {
	r := bytes.NewReader(data)
	dec := msgpack.GetDecoder()
	dec.Reset(r)
	d, err := decodeDocument(dec, r.Len)
	msgpack.PutDecoder(dec)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after document", r.Len())
	}
	return d, nil
}
