// Cross-process advisory locking for collections.
//
// Rewrites replace the collection file by rename, so a flock held on the
// data file itself would end up guarding an unlinked inode. Each
// collection instead has a dedicated lock file, <name>.mgdb.lock, which is
// created on first use and never removed.
//
// fileLock wraps flock(2) / LockFileEx with a mutex that guards the file
// handle's lifetime, so Fd() cannot race with Close() on the same
// *os.File. Within one process the collection mutex already serialises
// callers; the flock only matters when several processes share a
// directory.
package mingledb

import (
	"os"
	"sync"
)

// LockMode selects shared (read) or exclusive (write) locking.
type LockMode int

const (
	LockShared LockMode = iota
	LockExclusive
)

// LockSuffix is appended to a collection file name to form its lock file.
const LockSuffix = ".lock"

type fileLock struct {
	mu sync.Mutex
	f  *os.File
}

// openLock opens (creating if needed) the lock file at path.
func openLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, filePerms)
	if err != nil {
		return nil, err
	}
	return &fileLock{f: f}, nil
}

// Lock acquires a shared or exclusive flock, blocking until granted.
// Returns nil immediately once the lock has been closed.
func (l *fileLock) Lock(mode LockMode) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	return l.lock(mode)
}

// Unlock releases the flock.
func (l *fileLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	return l.unlock()
}

// Close drains any in-flight flock and closes the handle. Later Lock and
// Unlock calls are no-ops.
func (l *fileLock) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}
