// Collection enumeration.
package mingledb

import (
	"os"
	"slices"
	"strings"
)

// Collections returns the names of all collection files in the data
// directory, sorted. The reserved _auth collection is included once a
// user has registered. Lock files and leftover temp files are skipped.
func (db *DB) Collections() ([]string, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}

	entries, err := os.ReadDir(db.dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := strings.CutSuffix(e.Name(), Extension)
		if !ok || name == "" {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}
