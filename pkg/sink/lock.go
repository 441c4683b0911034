package sink

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockPath returns the advisory lock file guarding dest.
func LockPath(dest string) string {
	return filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+".mod2doctest.lock")
}

// Lock is an advisory lock on one destination. It must be released on every
// exit path; Release is safe to call more than once.
type Lock struct {
	path  string
	flock *flock.Flock
}

// AcquireLock takes the lock for dest without blocking. ErrLocked is
// returned when another writer holds it.
func AcquireLock(dest string) (*Lock, error) {
	path := LockPath(dest)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	fl := flock.New(path)

	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return &Lock{path: path, flock: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks the destination. The lock file stays behind so every
// writer contends on the same inode.
func (l *Lock) Release() error {
	if l == nil || l.flock == nil {
		return nil
	}
	fl := l.flock
	l.flock = nil

	if err := fl.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}

// WithLock runs fn while holding the lock for dest.
func WithLock(dest string, fn func() error) (err error) {
	lock, err := AcquireLock(dest)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return fn()
}
