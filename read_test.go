package mingledb

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func buildFile(t *testing.T, docs ...Document) []byte {
	t.Helper()
	buf, err := header("c")
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	for _, d := range docs {
		payload, err := encodeFrame(d, CompressionZlib, MaxDocumentSize)
		if err != nil {
			t.Fatalf("encodeFrame: %v", err)
		}
		buf = appendFrame(buf, payload)
	}
	return buf
}

func TestFrameReaderDocuments(t *testing.T) {
	docs := []Document{D("n", 1), D("n", 2), D("n", 3)}
	data := buildFile(t, docs...)

	fr, err := newFrameReader(bytes.NewReader(data), 16, MaxFrameSize)
	if err != nil {
		t.Fatalf("newFrameReader: %v", err)
	}
	if string(fr.meta) != `{"collection":"c"}` {
		t.Errorf("meta = %s", fr.meta)
	}

	var got []Document
	for doc, err := range fr.documents() {
		if err != nil {
			t.Fatalf("documents: %v", err)
		}
		got = append(got, doc)
	}
	if diff := cmp.Diff(docs, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if fr.offset != int64(len(data)) {
		t.Errorf("offset = %d, want %d", fr.offset, len(data))
	}
}

func TestFrameReaderOffsets(t *testing.T) {
	data := buildFile(t, D("a", 1), D("b", 2))
	hdr, _ := header("c")

	fr, _ := newFrameReader(bytes.NewReader(data), 4096, MaxFrameSize)
	if fr.offset != int64(len(hdr)) {
		t.Fatalf("initial offset = %d, want %d", fr.offset, len(hdr))
	}

	p, err := fr.next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if fr.offset != int64(len(hdr)+LengthSize+len(p)) {
		t.Errorf("offset after first frame = %d", fr.offset)
	}
	fr.next()
	if _, err := fr.next(); err != io.EOF {
		t.Errorf("next at end = %v, want io.EOF", err)
	}
}

func TestFrameReaderTruncation(t *testing.T) {
	data := buildFile(t, D("a", 1))

	for cut := 1; cut <= LengthSize+2; cut++ {
		damaged := append(bytes.Clone(data), 0x40, 0, 0, 0, 1, 2)[:len(data)+cut]
		fr, err := newFrameReader(bytes.NewReader(damaged), 4096, MaxFrameSize)
		if err != nil {
			t.Fatalf("newFrameReader: %v", err)
		}
		fr.next()
		if _, err := fr.next(); !errors.Is(err, ErrTruncated) {
			t.Errorf("cut %d: err = %v, want ErrTruncated", cut, err)
		}
	}
}

func TestFrameReaderLimit(t *testing.T) {
	data := buildFile(t, D("blob", "0123456789abcdef0123456789abcdef"))

	fr, _ := newFrameReader(bytes.NewReader(data), 4096, 8)
	_, err := fr.next()
	if !errors.Is(err, ErrCorruptFrame) || errors.Is(err, ErrTruncated) {
		t.Errorf("err = %v, want ErrCorruptFrame", err)
	}
}

func TestFrameReaderStopsAtFirstError(t *testing.T) {
	data := buildFile(t, D("n", 1))
	data = appendFrame(data, []byte("junk"))
	payload, _ := encodeFrame(D("n", 3), CompressionZlib, MaxDocumentSize)
	data = appendFrame(data, payload)

	fr, _ := newFrameReader(bytes.NewReader(data), 4096, MaxFrameSize)
	var good, bad int
	for _, err := range fr.documents() {
		if err != nil {
			bad++
			continue
		}
		good++
	}
	if good != 1 || bad != 1 {
		t.Errorf("good = %d, bad = %d; want 1, 1", good, bad)
	}
}
