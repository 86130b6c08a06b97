//go:build windows

package mingledb

import (
	"golang.org/x/sys/windows"
)

// The whole lock file is locked; it never holds data, so the byte range
// only has to be the same for every caller.
const lockRange = 0xFFFFFFFF

func (l *fileLock) lock(mode LockMode) error {
	var flags uint32
	if mode == LockExclusive {
		flags |= windows.LOCKFILE_EXCLUSIVE_LOCK
	}
	var ol windows.Overlapped
	return windows.LockFileEx(windows.Handle(l.f.Fd()), flags, 0, lockRange, lockRange, &ol)
}

func (l *fileLock) unlock() error {
	var ol windows.Overlapped
	return windows.UnlockFileEx(windows.Handle(l.f.Fd()), 0, lockRange, lockRange, &ol)
}
