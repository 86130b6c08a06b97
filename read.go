// Read primitives for collection files.
//
// frameReader walks a collection file front to back: header first, then
// one length-prefixed frame at a time. A clean end of file after a
// complete frame ends the walk. Anything shorter is ErrTruncated, which is
// how a reader notices an append that was cut off mid-write. The reader
// tracks its byte offset so Repair knows where the last intact frame
// ended.
package mingledb

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
)

type frameReader struct {
	r      *bufio.Reader
	max    int // frame payload limit
	maxDoc int // decompressed document limit
	offset int64 // byte position just past the last complete frame
	meta   []byte
}

// newFrameReader consumes the header from r and positions the reader at
// the first frame.
func newFrameReader(r io.Reader, bufSize, maxFrame int) (*frameReader, error) {
	br := bufio.NewReaderSize(r, bufSize)
	meta, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	return &frameReader{
		r:      br,
		max:    maxFrame,
		maxDoc: MaxDocumentSize,
		offset: int64(len(Magic) + LengthSize + len(meta)),
		meta:   meta,
	}, nil
}

// next returns the next frame payload, or io.EOF at a clean end of file.
func (fr *frameReader) next() ([]byte, error) {
	var prefix [LengthSize]byte
	if _, err := io.ReadFull(fr.r, prefix[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: partial length prefix at offset %d", ErrTruncated, fr.offset)
		}
		return nil, err
	}

	n := binary.LittleEndian.Uint32(prefix[:])
	if uint64(n) > uint64(fr.max) {
		return nil, fmt.Errorf("%w: frame length %d at offset %d exceeds limit %d", ErrCorruptFrame, n, fr.offset, fr.max)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: frame at offset %d wants %d bytes", ErrTruncated, fr.offset, n)
		}
		return nil, err
	}
	fr.offset += int64(LengthSize) + int64(n)
	return payload, nil
}

// documents yields every document in order. Iteration stops at the first
// error, which is yielded once.
func (fr *frameReader) documents() iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		for {
			payload, err := fr.next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			doc, err := decodeFrame(payload, fr.maxDoc)
			if err != nil {
				yield(nil, fmt.Errorf("frame at offset %d: %w", fr.offset-int64(LengthSize+len(payload)), err))
				return
			}
			if !yield(doc, nil) {
				return
			}
		}
	}
}

// openCollection opens the collection file for reading. A missing file
// returns (nil, nil, nil): an absent collection reads as empty.
func (db *DB) openCollection(c *collection) (*os.File, *frameReader, error) {
	f, err := os.Open(db.path(c.name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	fr, err := newFrameReader(f, db.config.ReadBuffer, db.config.MaxFrameSize)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%s: %w", c.name, err)
	}
	fr.maxDoc = db.config.MaxDocSize
	return f, fr, nil
}

// readAll decodes the whole collection. It returns the raw metadata bytes
// alongside the documents so a rewrite can reproduce them. The caller must
// hold the collection lock.
func (db *DB) readAll(c *collection) ([]byte, []Document, error) {
	f, fr, err := db.openCollection(c)
	if err != nil || f == nil {
		return nil, nil, err
	}
	defer f.Close()

	var docs []Document
	for doc, err := range fr.documents() {
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", c.name, err)
		}
		docs = append(docs, doc)
	}
	return fr.meta, docs, nil
}
