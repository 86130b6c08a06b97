// Reads.
//
// Every read decodes the collection front to back under the collection
// lock; there are no indexes. An absent collection reads as empty. The
// first corrupt or truncated frame aborts the read with an error rather
// than returning a partial result.
//
// All streams documents and holds the collection lock until the caller
// finishes iterating or breaks out, so a long-running loop body delays
// writers to that collection. Calling another method on the same
// collection from inside the loop deadlocks.
package mingledb

import (
	"iter"
)

// All yields every document in stored order.
func (db *DB) All(collection string) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		c, err := db.acquire(collection, LockShared)
		if err != nil {
			yield(nil, err)
			return
		}
		defer db.release(c)

		f, fr, err := db.openCollection(c)
		if err != nil {
			yield(nil, err)
			return
		}
		if f == nil {
			return
		}
		defer f.Close()

		for doc, err := range fr.documents() {
			if !yield(doc, err) || err != nil {
				return
			}
		}
	}
}

// FindAll returns every document in stored order.
func (db *DB) FindAll(collection string) ([]Document, error) {
	return db.Find(collection, nil)
}

// Find returns the documents matching filter, in stored order.
func (db *DB) Find(collection string, filter Filter) ([]Document, error) {
	docs := []Document{}
	for doc, err := range db.All(collection) {
		if err != nil {
			return nil, err
		}
		if filter.Match(doc) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// FindOne returns the first matching document in stored order, or
// ErrNotFound.
func (db *DB) FindOne(collection string, filter Filter) (Document, error) {
	for doc, err := range db.All(collection) {
		if err != nil {
			return nil, err
		}
		if filter.Match(doc) {
			return doc, nil
		}
	}
	return nil, ErrNotFound
}

// Count returns the number of documents matching filter.
func (db *DB) Count(collection string, filter Filter) (int, error) {
	n := 0
	for doc, err := range db.All(collection) {
		if err != nil {
			return 0, err
		}
		if filter.Match(doc) {
			n++
		}
	}
	return n, nil
}
