// Collection file header.
//
// Every collection file opens with the 10-byte magic "MINGLEDBv1", then a
// length-prefixed JSON metadata block recording the collection name. The
// metadata is written once at creation. Rewrites copy the existing bytes
// forward unchanged so fields added by other writers are not lost.
package mingledb

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// Magic is the fixed prefix of every collection file.
const Magic = "MINGLEDBv1"

// Extension is the file suffix for collection files.
const Extension = ".mgdb"

// MaxMetadataSize bounds the metadata block so a damaged length prefix
// cannot trigger a huge allocation.
const MaxMetadataSize = 64 * 1024

// Metadata is the JSON block that follows the magic header.
type Metadata struct {
	Collection string `json:"collection"`
}

// header builds the magic and metadata block for a new collection file.
func header(name string) ([]byte, error) {
	meta, err := json.Marshal(Metadata{Collection: name})
	if err != nil {
		return nil, err
	}
	return headerWith(meta), nil
}

// headerWith builds a header around existing raw metadata bytes.
func headerWith(meta []byte) []byte {
	buf := make([]byte, 0, len(Magic)+LengthSize+len(meta))
	buf = append(buf, Magic...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(meta)))
	return append(buf, meta...)
}

// readHeader consumes the magic and metadata block from r and returns the
// raw metadata bytes. Any deviation is ErrCorruptHeader.
func readHeader(r *bufio.Reader) ([]byte, error) {
	var fixed [len(Magic) + LengthSize]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptHeader, err)
	}
	if string(fixed[:len(Magic)]) != Magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptHeader, fixed[:len(Magic)])
	}

	n := binary.LittleEndian.Uint32(fixed[len(Magic):])
	if n > MaxMetadataSize {
		return nil, fmt.Errorf("%w: metadata length %d", ErrCorruptHeader, n)
	}
	meta := make([]byte, n)
	if _, err := io.ReadFull(r, meta); err != nil {
		return nil, fmt.Errorf("%w: metadata: %w", ErrCorruptHeader, err)
	}

	var m Metadata
	if err := json.Unmarshal(meta, &m); err != nil {
		return nil, fmt.Errorf("%w: metadata: %w", ErrCorruptHeader, err)
	}
	return meta, nil
}
