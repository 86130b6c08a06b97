// Store lifecycle and per-collection coordination.
//
// DB owns everything that lives for the duration of a process: the data
// directory, the schema registry, the authenticated-session set and one
// lock per collection. Nothing is global, so several DB values (for
// example in parallel tests) never share state.
//
// Every operation on a collection runs under that collection's mutex,
// which makes concurrent callers observe a strictly serial history: two
// updates can no longer read the same snapshot and lose one another's
// change. The mutex is held across the whole read-modify-rewrite cycle.
// Operations on different collections proceed in parallel.
package mingledb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// MaxCollectionName bounds collection names so that the file name plus
// extension, lock suffix and temp-file digits stays within common
// filesystem limits.
const MaxCollectionName = 200

// DB represents an open store rooted at one directory.
type DB struct {
	dir    string
	config Config
	log    *zap.Logger
	closed atomic.Bool

	mu          sync.Mutex // guards collections and schemas
	collections map[string]*collection
	schemas     map[string]Schema

	sessions sessions
}

// collection serialises access to one collection file.
type collection struct {
	name string
	mu   sync.Mutex
	lock *fileLock // opened on first use
}

// Open opens the store in dir, creating the directory if needed.
func Open(dir string, config Config) (*DB, error) {
	config = config.withDefaults()
	if config.Compression != CompressionZlib && config.Compression != CompressionZstd {
		return nil, fmt.Errorf("open: unknown compression codec %d", config.Compression)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	db := &DB{
		dir:         dir,
		config:      config,
		log:         config.Logger.With(zap.String("dir", dir)),
		collections: make(map[string]*collection),
		schemas:     make(map[string]Schema),
	}

	if err := db.cleanTemp(); err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.schemas[AuthCollection] = authSchema
	db.log.Debug("store opened")
	return db, nil
}

// Close releases lock files and clears the session set. Operations after
// Close return ErrClosed. Close waits for in-flight operations to finish.
func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}

	db.mu.Lock()
	cols := make([]*collection, 0, len(db.collections))
	for _, c := range db.collections {
		cols = append(cols, c)
	}
	db.mu.Unlock()

	var errs []error
	for _, c := range cols {
		c.mu.Lock()
		if c.lock != nil {
			if err := c.lock.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		c.mu.Unlock()
	}

	db.sessions.clear()
	db.log.Debug("store closed")
	return errors.Join(errs...)
}

// Dir returns the data directory.
func (db *DB) Dir() string {
	return db.dir
}

// path returns the collection file path for name.
func (db *DB) path(name string) string {
	return filepath.Join(db.dir, name+Extension)
}

// validName rejects names that would escape the data directory or cannot
// be represented as a file name.
func validName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	case len(name) > MaxCollectionName:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidCollection, MaxCollectionName)
	case strings.ContainsAny(name, "/\\\x00:"):
		return fmt.Errorf("%w: %q contains a reserved character", ErrInvalidCollection, name)
	case !filepath.IsLocal(name + Extension):
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return nil
}

// acquire locks a collection for one operation. Writers take the
// cross-process lock exclusively, readers shared; in-process both are
// exclusive through c.mu. Callers must pair it with release.
func (db *DB) acquire(name string, mode LockMode) (*collection, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if db.closed.Load() {
		return nil, ErrClosed
	}

	db.mu.Lock()
	c, ok := db.collections[name]
	if !ok {
		c = &collection{name: name}
		db.collections[name] = c
	}
	db.mu.Unlock()

	c.mu.Lock()
	if db.closed.Load() {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.lock == nil {
		l, err := openLock(db.path(name) + LockSuffix)
		if err != nil {
			c.mu.Unlock()
			return nil, fmt.Errorf("%s: lock: %w", name, err)
		}
		c.lock = l
	}
	if err := c.lock.Lock(mode); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%s: lock: %w", name, err)
	}
	return c, nil
}

func (db *DB) release(c *collection) {
	c.lock.Unlock()
	c.mu.Unlock()
}

// DefineSchema sets the validation rules for a collection, replacing any
// previous schema. Stored documents are not touched or re-validated.
// A nil or empty schema turns validation off.
func (db *DB) DefineSchema(collection string, s Schema) error {
	if err := validName(collection); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if db.closed.Load() {
		return ErrClosed
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if len(s) == 0 {
		delete(db.schemas, collection)
		return nil
	}
	db.schemas[collection] = slices.Clone(s)
	return nil
}

// Schema returns the schema declared for a collection.
func (db *DB) Schema(collection string) (Schema, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	s, ok := db.schemas[collection]
	return slices.Clone(s), ok
}

func (db *DB) schema(collection string) Schema {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.schemas[collection]
}

// Reset deletes every collection file in the directory and clears the
// schema registry and the session set. The _auth schema is declared
// again. Lock files are left in place.
func (db *DB) Reset() error {
	if db.closed.Load() {
		return ErrClosed
	}

	names, err := db.Collections()
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	db.mu.Lock()
	for name := range db.collections {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	db.mu.Unlock()
	slices.Sort(names)

	// Locks are taken in sorted order so concurrent Resets cannot
	// deadlock; other operations only ever hold one collection lock.
	var held []*collection
	defer func() {
		for _, c := range held {
			db.release(c)
		}
	}()
	for _, name := range names {
		if validName(name) != nil {
			continue
		}
		c, err := db.acquire(name, LockExclusive)
		if err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		held = append(held, c)
	}

	for _, c := range held {
		if err := os.Remove(db.path(c.name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reset: %w", err)
		}
	}

	db.mu.Lock()
	clear(db.schemas)
	db.schemas[AuthCollection] = authSchema
	db.mu.Unlock()
	db.sessions.clear()

	db.log.Info("store reset", zap.Int("collections", len(held)))
	return nil
}

// cleanTemp removes temp files left by a rewrite that was interrupted
// before its rename. They are named <collection>.mgdb<digits>.
func (db *DB) cleanTemp() error {
	entries, err := os.ReadDir(db.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !isTempName(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(db.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		db.log.Warn("removed stale temp file", zap.String("file", e.Name()))
	}
	return nil
}

func isTempName(name string) bool {
	i := strings.LastIndex(name, Extension)
	if i <= 0 {
		return false
	}
	rest := name[i+len(Extension):]
	if rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
