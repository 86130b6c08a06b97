// Truncation recovery.
//
// An insert that dies mid-write leaves a partial frame at the end of the
// file, and every later read of that collection fails with ErrTruncated.
// Repair cuts the file back to the last frame that decodes cleanly. The
// intact prefix is rewritten through the same atomic replace as any other
// rewrite, with the existing metadata kept, so a crash during Repair
// leaves the damaged file rather than a worse one.
//
// Repair does not try to resynchronise past a bad frame: once a length
// prefix is wrong there is no reliable way to find the next frame
// boundary, so everything after the first bad frame is discarded. A
// corrupt header cannot be repaired.
package mingledb

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Repair truncates a damaged collection to its intact prefix and returns
// the number of bytes discarded. A healthy or absent collection is left
// alone and reports zero.
func (db *DB) Repair(collection string) (int64, error) {
	c, err := db.acquire(collection, LockExclusive)
	if err != nil {
		return 0, err
	}
	defer db.release(c)

	f, fr, err := db.openCollection(c)
	if err != nil {
		return 0, fmt.Errorf("repair: %w", err)
	}
	if f == nil {
		return 0, nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("repair %s: %w", collection, err)
	}

	var (
		docs  []Document
		good  = fr.offset
		cause error
	)
	for {
		payload, err := fr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !errors.Is(err, ErrCorruptFrame) {
				return 0, fmt.Errorf("repair %s: %w", collection, err)
			}
			cause = err
			break
		}
		doc, err := decodeFrame(payload, fr.maxDoc)
		if err != nil {
			cause = err
			break
		}
		docs = append(docs, doc)
		good = fr.offset
	}

	discarded := info.Size() - good
	if cause == nil && discarded == 0 {
		return 0, nil
	}

	if err := db.rewrite(c, fr.meta, docs); err != nil {
		return 0, fmt.Errorf("repair: %w", err)
	}
	db.log.Warn("collection repaired",
		zap.String("collection", collection),
		zap.Int("kept", len(docs)),
		zap.Int64("discarded_bytes", discarded),
		zap.NamedError("cause", cause))
	return discarded, nil
}
