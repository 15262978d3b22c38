// Package atomicio implements the two filesystem primitives every higher
// layer builds on: an exclusive advisory lock with backoff retry, and a
// platform-native atomic rename-exchange. Nothing above this package ever
// issues a raw flock or rename syscall directly.
package atomicio

import (
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/agentmail/atm/internal/atmerr"
)

// DefaultMaxRetries is the retry ceiling used when a caller doesn't need
// a different budget.
const DefaultMaxRetries = 5

// baseBackoff is the wait before the first retry; subsequent waits double:
// 50ms, 100ms, 200ms, 400ms, 800ms for the default 5 retries.
const baseBackoff = 50 * time.Millisecond

// Lock is a held exclusive advisory lock on a file. It releases the lock
// when Close is called; callers should defer Close immediately after a
// successful Acquire.
type Lock struct {
	file *os.File
}

// Acquire opens (creating if needed) the file at path and attempts to take
// an exclusive, non-blocking flock on it, retrying with exponential
// backoff on EWOULDBLOCK/EAGAIN up to maxRetries times. It returns
// *atmerr.LockTimeout if every attempt is refused.
func Acquire(path string, maxRetries int) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &Lock{file: f}, nil
		}
		if err != unix.EWOULDBLOCK && err != unix.EAGAIN {
			f.Close()
			return nil, err
		}
		if attempt < maxRetries {
			time.Sleep(baseBackoff << uint(attempt))
		}
	}

	f.Close()
	return nil, &atmerr.LockTimeout{Path: path, Retries: maxRetries}
}

// Close releases the lock and closes the underlying file handle. It is
// safe to call once; a second call returns the error from the redundant
// close.
func (l *Lock) Close() error {
	defer l.file.Close()
	return unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
}
