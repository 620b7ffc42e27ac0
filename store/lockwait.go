package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// LockFileWait behaves like LockFile, but on contention it polls with
// exponential backoff instead of returning a ContentionError immediately.
// The per-hash build lock is meant to be waited on: a concurrent builder of
// the same hash commits quickly, and the caller's fast-path cache check
// after acquiring picks up whatever that builder published.
//
// Unlike the whole-store lock (which fails a command outright on
// contention), this never gives up on its own; ctx bounds how long the
// caller is willing to wait.
func LockFileWait(ctx context.Context, path string, mode LockMode) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 0 // bounded by ctx instead

	op := func() error {
		err := tryLock(f, mode)
		if err == nil || err == errWouldBlock {
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		f.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	return f, nil
}
