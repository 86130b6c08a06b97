// Write primitives for collection files.
//
// Inserts append one frame at the end of the file with a single write
// call; if the process dies mid-write, readers see ErrTruncated and
// Repair drops the partial tail. Creation and full rewrites never touch
// the live file in place: the new content goes to a temporary file in the
// same directory, is synced, and is renamed over the old one. A crash at
// any point leaves either the old file or the new one, never a mix.
package mingledb

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"
)

// filePerms is applied after every atomic write; the temp file that
// atomic.WriteFile renames into place is created 0600.
const filePerms = 0o644

// ensure creates the collection file with an empty header if it does not
// exist. Idempotent. The caller must hold the collection lock.
func (db *DB) ensure(c *collection) error {
	path := db.path(c.name)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ensure %s: %w", c.name, err)
	}

	hdr, err := header(c.name)
	if err != nil {
		return fmt.Errorf("ensure %s: %w", c.name, err)
	}
	if err := db.replace(path, hdr); err != nil {
		return fmt.Errorf("ensure %s: %w", c.name, err)
	}
	db.log.Debug("collection created", zap.String("collection", c.name))
	return nil
}

// append writes one frame per document at the end of the collection file,
// all in a single write call. Every frame is encoded before the file is
// opened, so an encoding failure writes nothing. The caller must hold the
// collection lock and have called ensure.
func (db *DB) append(c *collection, docs ...Document) error {
	var buf []byte
	for _, doc := range docs {
		payload, err := encodeFrame(doc, db.config.Compression, db.config.MaxDocSize)
		if err != nil {
			return fmt.Errorf("append %s: %w", c.name, err)
		}
		if len(payload) > db.config.MaxFrameSize {
			return fmt.Errorf("append %s: %w: %d bytes", c.name, ErrFrameTooLarge, len(payload))
		}
		buf = appendFrame(buf, payload)
	}

	f, err := os.OpenFile(db.path(c.name), os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("append %s: %w", c.name, err)
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("append %s: %w", c.name, err)
	}
	if db.config.SyncWrites {
		if err := f.Sync(); err != nil {
			f.Close()
			return fmt.Errorf("append %s: sync: %w", c.name, err)
		}
	}
	return f.Close()
}

// rewrite replaces the collection file with a header and one frame per
// document, in order. meta is the metadata block read from the old file;
// nil writes fresh metadata. The caller must hold the collection lock.
func (db *DB) rewrite(c *collection, meta []byte, docs []Document) error {
	var buf []byte
	if meta != nil {
		buf = headerWith(meta)
	} else {
		hdr, err := header(c.name)
		if err != nil {
			return fmt.Errorf("rewrite %s: %w", c.name, err)
		}
		buf = hdr
	}

	for i, doc := range docs {
		payload, err := encodeFrame(doc, db.config.Compression, db.config.MaxDocSize)
		if err != nil {
			return fmt.Errorf("rewrite %s: document %d: %w", c.name, i, err)
		}
		if len(payload) > db.config.MaxFrameSize {
			return fmt.Errorf("rewrite %s: document %d: %w", c.name, i, ErrFrameTooLarge)
		}
		buf = appendFrame(buf, payload)
	}

	if err := db.replace(db.path(c.name), buf); err != nil {
		return fmt.Errorf("rewrite %s: %w", c.name, err)
	}
	db.log.Debug("collection rewritten",
		zap.String("collection", c.name),
		zap.Int("documents", len(docs)),
		zap.Int("bytes", len(buf)))
	return nil
}

// replace atomically swaps the file at path for data.
func (db *DB) replace(path string, data []byte) error {
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return err
	}
	return os.Chmod(path, filePerms)
}
