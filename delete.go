// Document deletion.
package mingledb

import (
	"slices"
)

// DeleteOne removes the first document matching filter and reports
// whether one was removed. The remaining documents keep their order. When
// nothing matches the file is not rewritten.
func (db *DB) DeleteOne(collection string, filter Filter) (bool, error) {
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

	if err := db.rewrite(c, meta, slices.Delete(docs, i, i+1)); err != nil {
		return false, err
	}
	return true, nil
}
