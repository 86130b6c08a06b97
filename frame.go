// Frame codec.
//
// A frame is the on-disk unit for one document: a 4-byte little-endian
// length followed by that many bytes of compressed msgpack. The payload
// functions here deal with the bytes after the prefix; appendFrame adds
// the prefix for writers.
package mingledb

import (
	"encoding/binary"
	"fmt"
)

// LengthSize is the width of every length prefix in a collection file.
const LengthSize = 4

// MaxFrameSize is the default limit on a single frame payload (16MB).
const MaxFrameSize = 16 * 1024 * 1024

// MaxDocumentSize is the default limit on a document's serialized size
// before compression (64MB).
const MaxDocumentSize = 64 * 1024 * 1024

// encodeFrame serializes and compresses a document into a frame payload.
// A document whose serialized form exceeds limit is ErrFrameTooLarge, since
// no reader with the same limit could decode it.
func encodeFrame(doc Document, codec, limit int) ([]byte, error) {
	raw, err := marshalDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	if len(raw) > limit {
		return nil, fmt.Errorf("encode: %w: document is %d bytes, limit %d", ErrFrameTooLarge, len(raw), limit)
	}
	out, err := compress(raw, codec)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return out, nil
}

// decodeFrame reverses encodeFrame. Every failure wraps ErrCorruptFrame.
func decodeFrame(payload []byte, limit int) (Document, error) {
	raw, err := decompress(payload, limit)
	if err != nil {
		return nil, err
	}
	doc, err := unmarshalDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: msgpack: %w", ErrCorruptFrame, err)
	}
	return doc, nil
}

// appendFrame appends the length prefix and payload to buf.
func appendFrame(buf, payload []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(payload)))
	return append(buf, payload...)
}
