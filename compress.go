// Frame payload compression.
//
// Two codecs are supported. zlib is the default and produces the same
// deflate stream format older collection files were written with. zstd is
// faster and is selected with Config.Compression. Decompression sniffs the
// zstd magic number, so frames of either kind can live in one collection
// and changing the setting never strands existing data.
package mingledb

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Compression codec constants.
const (
	CompressionZlib = 1 // Default, deflate in a zlib wrapper
	CompressionZstd = 2 // Zstandard, fastest level
)

// zstdMagic opens every zstd frame (RFC 8878 section 3.1.1).
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Shared zstd encoder; safe for concurrent use and expensive to build.
var zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))

// Streaming zstd decoders, one frame at a time each. DecodeAll cannot stop
// early, so reads go through a size-limited stream instead.
var zstdDecoders = sync.Pool{
	New: func() any {
		d, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderLowmem(true))
		return d
	},
}

// zlib writers carry large internal tables; reuse them across frames.
var zlibWriters = sync.Pool{
	New: func() any {
		w, _ := zlib.NewWriterLevel(nil, zlib.DefaultCompression)
		return w
	},
}

func compress(data []byte, codec int) ([]byte, error) {
	switch codec {
	case CompressionZstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	case CompressionZlib, 0:
		var buf bytes.Buffer
		w := zlibWriters.Get().(*zlib.Writer)
		defer zlibWriters.Put(w)
		w.Reset(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("zlib: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("zlib: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown compression codec %d", codec)
	}
}

// decompress inflates a frame payload. Output longer than limit bytes is
// ErrCorruptFrame; the stream is abandoned once the limit is crossed so a
// small payload cannot expand without bound.
func decompress(data []byte, limit int) ([]byte, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		d := zstdDecoders.Get().(*zstd.Decoder)
		defer zstdDecoders.Put(d)
		if err := d.Reset(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCorruptFrame, err)
		}
		return readLimited(d, limit, "zstd")
	}

	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: zlib: %w", ErrCorruptFrame, err)
	}
	defer r.Close()
	return readLimited(r, limit, "zlib")
}

func readLimited(r io.Reader, limit int, codec string) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptFrame, codec, err)
	}
	if len(out) > limit {
		return nil, fmt.Errorf("%w: %s: decompressed size exceeds %d bytes", ErrCorruptFrame, codec, limit)
	}
	return out, nil
}
