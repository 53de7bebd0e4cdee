package util

import (
	"os"

	"golang.org/x/sys/unix"
)

// TryLockFile opens path and takes an exclusive, non-blocking flock on it.
//
// When another process holds the lock, ok is false and err is nil. The
// returned file must stay open for as long as the lock should be held; the
// kernel releases the lock when the process exits.
func TryLockFile(path string) (file *os.File, ok bool, err error) {
	file, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, false, err
	}

	err = unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == unix.EWOULDBLOCK {
		file.Close()
		return nil, false, nil
	} else if err != nil {
		file.Close()
		return nil, false, err
	}

	return file, true, nil
}
