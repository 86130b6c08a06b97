// Value fingerprints for uniqueness checks.
//
// fingerprint hashes a canonical byte form of a value with xxHash3. The
// canonical form sorts object keys and folds negative zero into zero, so
// two values that Equal always share a fingerprint. The converse does
// not hold: matches are confirmed with Equal before a duplicate is
// reported.
package mingledb

import (
	"cmp"
	"encoding/binary"
	"math"
	"slices"

	"github.com/zeebo/xxh3"
)

func fingerprint(v Value) uint64 {
	h := xxh3.New()
	writeCanonical(h, v)
	return h.Sum64()
}

func writeCanonical(h *xxh3.Hasher, v Value) {
	var buf [9]byte
	buf[0] = byte(v.kind)
	switch v.kind {
	case KindString:
		binary.LittleEndian.PutUint64(buf[1:], uint64(len(v.str)))
		h.Write(buf[:])
		h.WriteString(v.str)
	case KindNumber:
		f := v.num
		if f == 0 {
			f = 0 // -0
		}
		binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(f))
		h.Write(buf[:])
	case KindBool:
		if v.b {
			buf[1] = 1
		}
		h.Write(buf[:2])
	case KindObject:
		binary.LittleEndian.PutUint64(buf[1:], uint64(len(v.obj)))
		h.Write(buf[:])
		fields := slices.Clone(v.obj)
		slices.SortFunc(fields, func(a, b Field) int {
			return cmp.Compare(a.Key, b.Key)
		})
		for _, f := range fields {
			writeCanonical(h, String(f.Key))
			writeCanonical(h, f.Value)
		}
	case KindArray:
		binary.LittleEndian.PutUint64(buf[1:], uint64(len(v.arr)))
		h.Write(buf[:])
		for _, e := range v.arr {
			writeCanonical(h, e)
		}
	default:
		h.Write(buf[:1])
	}
}

// uniqueIndex holds fingerprints of the values already taken for each
// unique field of a schema.
type uniqueIndex struct {
	fields map[string]map[uint64][]Value
}

func newUniqueIndex(s Schema, docs []Document) *uniqueIndex {
	ix := &uniqueIndex{fields: make(map[string]map[uint64][]Value)}
	for _, r := range s {
		if r.Unique {
			ix.fields[r.Field] = make(map[uint64][]Value)
		}
	}
	if len(ix.fields) == 0 {
		return ix
	}
	for _, d := range docs {
		ix.add(d)
	}
	return ix
}

// add records the unique-field values of doc. Null and absent values are
// never recorded: they do not collide.
func (ix *uniqueIndex) add(doc Document) {
	for field, set := range ix.fields {
		v, ok := doc.Get(field)
		if !ok || v.IsNull() {
			continue
		}
		fp := fingerprint(v)
		set[fp] = append(set[fp], v)
	}
}

func (ix *uniqueIndex) contains(field string, v Value) bool {
	for _, taken := range ix.fields[field][fingerprint(v)] {
		if taken.Equal(v) {
			return true
		}
	}
	return false
}
