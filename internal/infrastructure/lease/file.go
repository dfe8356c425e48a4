package lease

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// FileLocker holds leases as advisory file locks. It only excludes processes
// sharing the same filesystem; the ttl is ignored because the lock dies with
// the process.
type FileLocker struct {
	dir string
}

// NewFileLocker creates a locker that places lock files in dir
func NewFileLocker(dir string) *FileLocker {
	return &FileLocker{dir: dir}
}

// TryAcquire takes the lease or returns ErrHeld without blocking
func (l *FileLocker) TryAcquire(_ context.Context, name string, _ time.Duration) (Lease, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lease dir: %w", err)
	}

	lock := flock.New(filepath.Join(l.dir, name+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	if !ok {
		return nil, ErrHeld
	}
	return &fileLease{lock: lock}, nil
}

type fileLease struct {
	lock *flock.Flock
}

func (f *fileLease) Release(context.Context) error {
	if err := f.lock.Unlock(); err != nil {
		return fmt.Errorf("release lease %s: %w", f.lock.Path(), err)
	}
	return nil
}
