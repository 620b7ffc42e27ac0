package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testPaths(t *testing.T) Paths {
	t.Helper()
	dir := t.TempDir()
	return Paths{Store: dir}
}

func TestAcquireExclusiveLock(t *testing.T) {
	p := testPaths(t)
	l, err := Acquire(p, LockExclusive, "test")
	require.NoError(t, err)
	defer l.Close()
	require.FileExists(t, l.LockPath())
}

func TestAcquireSharedLock(t *testing.T) {
	p := testPaths(t)
	l, err := Acquire(p, LockShared, "test")
	require.NoError(t, err)
	defer l.Close()
	require.FileExists(t, l.LockPath())
}

func TestMultipleSharedLocksCoexist(t *testing.T) {
	p := testPaths(t)
	l1, err := Acquire(p, LockShared, "test1")
	require.NoError(t, err)
	defer l1.Close()

	l2, err := Acquire(p, LockShared, "test2")
	require.NoError(t, err)
	defer l2.Close()
}

func TestExclusiveLockContends(t *testing.T) {
	p := testPaths(t)
	l1, err := Acquire(p, LockExclusive, "holder")
	require.NoError(t, err)
	defer l1.Close()

	_, err = Acquire(p, LockExclusive, "contender")
	require.Error(t, err)
	var contention *ContentionError
	require.ErrorAs(t, err, &contention)
	require.NotNil(t, contention.Metadata)
	require.Equal(t, "holder", contention.Metadata.Command)
}

func TestLockMetadataWritten(t *testing.T) {
	p := testPaths(t)
	l, err := Acquire(p, LockExclusive, "my-command")
	require.NoError(t, err)
	defer l.Close()

	m, err := l.ReadMetadata()
	require.NoError(t, err)
	require.Equal(t, 1, m.Version)
	require.Equal(t, "my-command", m.Command)
}

func TestLockReleasedOnClose(t *testing.T) {
	p := testPaths(t)
	l1, err := Acquire(p, LockExclusive, "test")
	require.NoError(t, err)
	require.NoError(t, l1.Close())

	l2, err := Acquire(p, LockExclusive, "test2")
	require.NoError(t, err)
	defer l2.Close()
}
