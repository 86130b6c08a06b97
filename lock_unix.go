//go:build unix

package mingledb

import (
	"golang.org/x/sys/unix"
)

func (l *fileLock) lock(mode LockMode) error {
	how := unix.LOCK_SH
	if mode == LockExclusive {
		how = unix.LOCK_EX
	}
	return flock(int(l.f.Fd()), how)
}

func (l *fileLock) unlock() error {
	return flock(int(l.f.Fd()), unix.LOCK_UN)
}

// flock blocks until granted; a signal delivered mid-wait surfaces as
// EINTR and the call is simply retried.
func flock(fd, how int) error {
	for {
		err := unix.Flock(fd, how)
		if err != unix.EINTR {
			return err
		}
	}
}
