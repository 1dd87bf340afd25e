// Package lockfile provides a scoped, cross-process exclusive lock backed
// by a lock file.
package lockfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// DefaultRetryDelay is how often a blocked Acquire retries the lock.
const DefaultRetryDelay = 50 * time.Millisecond

// With acquires an exclusive lock on path, runs fn, and releases the lock
// on every exit path, including a panic in fn. The lock file's parent
// directory is created if needed.
func With(ctx context.Context, path string, fn func() error) (err error) {
	release, err := Acquire(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if uerr := release(); uerr != nil && err == nil {
			err = uerr
		}
	}()

	return fn()
}

// Acquire blocks until the lock on path is held or ctx is done. The
// returned function releases it.
func Acquire(ctx context.Context, path string) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("lockfile: create lock dir: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLockContext(ctx, DefaultRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lockfile: lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("lockfile: lock %s: not acquired", path)
	}

	return func() error {
		if err := fl.Unlock(); err != nil {
			return fmt.Errorf("lockfile: unlock %s: %w", path, err)
		}
		return nil
	}, nil
}
