// Document insertion.
//
// InsertOne is the only operation that appends: it encodes one frame and
// writes it at the end of the file without touching the rest. The file is
// created first, so a rejected insert still leaves an initialised empty
// collection behind. When the collection has a schema the existing
// documents are read for the uniqueness check; without one the insert
// never reads the file.
package mingledb

import (
	"fmt"
)

// InsertOne validates doc against the collection's schema and appends it.
// Stored fields keep the order given.
func (db *DB) InsertOne(collection string, doc Document) error {
	if err := doc.validate(); err != nil {
		return fmt.Errorf("insert %s: %w", collection, err)
	}

	c, err := db.acquire(collection, LockExclusive)
	if err != nil {
		return err
	}
	defer db.release(c)

	if err := db.ensure(c); err != nil {
		return err
	}

	if s := db.schema(collection); len(s) > 0 {
		_, existing, err := db.readAll(c)
		if err != nil {
			return err
		}
		if err := validate(s, doc, existing); err != nil {
			db.logRejected(collection, err)
			return err
		}
	}

	return db.append(c, doc)
}

// InsertMany inserts docs in order. Every document is validated before any
// is written, and unique fields must also be distinct within the batch, so
// either all documents are stored or none are.
func (db *DB) InsertMany(collection string, docs []Document) error {
	for i, doc := range docs {
		if err := doc.validate(); err != nil {
			return fmt.Errorf("insert %s: document %d: %w", collection, i, err)
		}
	}

	c, err := db.acquire(collection, LockExclusive)
	if err != nil {
		return err
	}
	defer db.release(c)

	if err := db.ensure(c); err != nil {
		return err
	}

	if s := db.schema(collection); len(s) > 0 {
		_, existing, err := db.readAll(c)
		if err != nil {
			return err
		}
		ix := newUniqueIndex(s, existing)
		for i, doc := range docs {
			if err := s.check(doc, ix); err != nil {
				db.logRejected(collection, err)
				return fmt.Errorf("document %d: %w", i, err)
			}
			ix.add(doc)
		}
	}

	if len(docs) == 0 {
		return nil
	}
	return db.append(c, docs...)
}
