package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLockFileWaitAcquiresImmediatelyWhenFree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.lock")

	f, err := LockFileWait(context.Background(), path, LockExclusive)
	require.NoError(t, err)
	defer f.Close()
}

func TestLockFileWaitBlocksUntilReleased(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.lock")

	holder, err := LockFile(path, LockExclusive)
	require.NoError(t, err)

	released := make(chan struct{})
	go func() {
		time.Sleep(30 * time.Millisecond)
		holder.Close()
		close(released)
	}()

	f, err := LockFileWait(context.Background(), path, LockExclusive)
	require.NoError(t, err)
	defer f.Close()
	<-released
}

func TestLockFileWaitRespectsContextCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.lock")

	holder, err := LockFile(path, LockExclusive)
	require.NoError(t, err)
	defer holder.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	_, err = LockFileWait(ctx, path, LockExclusive)
	require.Error(t, err)
}
