package mingledb

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestFileLayout checks the exact bytes of a collection file.
func TestFileLayout(t *testing.T) {
	db := openTestDB(t)
	doc := D("name", "Alice")
	mustInsert(t, db, "users", doc)

	data, err := os.ReadFile(db.path("users"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if got := string(data[:10]); got != "MINGLEDBv1" {
		t.Fatalf("magic = %q", got)
	}
	metaLen := binary.LittleEndian.Uint32(data[10:14])
	meta := data[14 : 14+metaLen]
	if string(meta) != `{"collection":"users"}` {
		t.Errorf("metadata = %s", meta)
	}

	rest := data[14+metaLen:]
	frameLen := binary.LittleEndian.Uint32(rest[:4])
	if int(frameLen) != len(rest)-4 {
		t.Fatalf("frame length %d, %d bytes follow", frameLen, len(rest)-4)
	}
	got, err := decodeFrame(rest[4:], MaxDocumentSize)
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyCollectionFile(t *testing.T) {
	db := openTestDB(t)
	db.DefineSchema("users", Schema{{Field: "name", Rule: Rule{Required: true}}})

	// A rejected insert still initialises the file.
	if err := db.InsertOne("users", D("x", 1)); err == nil {
		t.Fatal("expected validation error")
	}

	data, err := os.ReadFile(db.path("users"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := append([]byte("MINGLEDBv1"), 22, 0, 0, 0)
	want = append(want, `{"collection":"users"}`...)
	if !bytes.Equal(data, want) {
		t.Errorf("file = %q, want %q", data, want)
	}

	info, _ := os.Stat(db.path("users"))
	if perm := info.Mode().Perm(); perm != filePerms {
		t.Errorf("permissions = %o, want %o", perm, filePerms)
	}
}

func TestEncodeDecodeFrame(t *testing.T) {
	doc := D("a", 1, "b", []any{"x", D("c", true)})
	for _, codec := range []int{CompressionZlib, CompressionZstd} {
		payload, err := encodeFrame(doc, codec, MaxDocumentSize)
		if err != nil {
			t.Fatalf("encodeFrame(%d): %v", codec, err)
		}
		got, err := decodeFrame(payload, MaxDocumentSize)
		if err != nil {
			t.Fatalf("decodeFrame(%d): %v", codec, err)
		}
		if diff := cmp.Diff(doc, got); diff != "" {
			t.Errorf("codec %d mismatch (-want +got):\n%s", codec, diff)
		}
	}
}

func TestDecodeFrameGarbage(t *testing.T) {
	for _, payload := range [][]byte{nil, {0x00}, []byte("not compressed at all")} {
		if _, err := decodeFrame(payload, MaxDocumentSize); !errors.Is(err, ErrCorruptFrame) {
			t.Errorf("decodeFrame(%q): err = %v, want ErrCorruptFrame", payload, err)
		}
	}
}

func TestAppendFrame(t *testing.T) {
	got := appendFrame([]byte{0xaa}, []byte{1, 2, 3})
	want := []byte{0xaa, 3, 0, 0, 0, 1, 2, 3}
	if !bytes.Equal(got, want) {
		t.Errorf("appendFrame = % x, want % x", got, want)
	}
}

func TestRewriteKeepsMetadata(t *testing.T) {
	db := openTestDB(t)
	mustInsert(t, db, "users", D("name", "Alice"))

	// Simulate metadata written by another version with an extra field.
	meta := []byte(`{"collection":"users","created_by":"v0"}`)
	payload, _ := encodeFrame(D("name", "Alice"), CompressionZlib, MaxDocumentSize)
	os.WriteFile(db.path("users"), appendFrame(headerWith(meta), payload), 0o644)

	if _, err := db.UpdateOne("users", Filter{"name": Equals("Alice")}, D("age", 30)); err != nil {
		t.Fatalf("UpdateOne: %v", err)
	}

	data, _ := os.ReadFile(db.path("users"))
	got, err := readHeader(bufio.NewReader(bytes.NewReader(data)))
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if !bytes.Equal(got, meta) {
		t.Errorf("metadata = %s, want %s", got, meta)
	}
}
