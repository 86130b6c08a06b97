// Document update.
//
// UpdateOne is a read-modify-rewrite: the whole collection is decoded, the
// first matching document is merged with the update, and the file is
// replaced atomically. The collection lock is held for the entire cycle,
// so two concurrent updates cannot both start from the same snapshot.
// When nothing matches the file is left as it was.
package mingledb

import (
	"fmt"
	"slices"
)

// UpdateOne merges update into the first document matching filter and
// reports whether a document was updated. Fields in update replace
// existing ones in place; new fields are appended. Other documents are
// untouched.
//
// With a schema declared, the merged document must pass validation. For
// uniqueness it is compared against every document except itself.
func (db *DB) UpdateOne(collection string, filter Filter, update Document) (bool, error) {
	if err := update.validate(); err != nil {
		return false, fmt.Errorf("update %s: %w", collection, err)
	}

	c, err := db.acquire(collection, LockExclusive)
	if err != nil {
		return false, err
	}
	defer db.release(c)

	meta, docs, err := db.readAll(c)
	if err != nil {
		return false, err
	}

	i := slices.IndexFunc(docs, filter.Match)
	if i < 0 {
		return false, nil
	}

	merged := docs[i].Merge(update)
	if s := db.schema(collection); len(s) > 0 {
		others := slices.Delete(slices.Clone(docs), i, i+1)
		if err := validate(s, merged, others); err != nil {
			db.logRejected(collection, err)
			return false, err
		}
	}

	docs[i] = merged
	if err := db.rewrite(c, meta, docs); err != nil {
		return false, err
	}
	return true, nil
}
