package gc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holoconf/holo"
	"github.com/holoconf/holo/hash"
	"github.com/holoconf/holo/snapshot"
	"github.com/holoconf/holo/store"
)

const markerFile = ".syslua-build-complete"

func testPaths(t *testing.T) store.Paths {
	t.Helper()
	root := t.TempDir()
	return store.Paths{
		Store:     filepath.Join(root, "store"),
		Snapshots: filepath.Join(root, "snapshots"),
		Cache:     filepath.Join(root, "cache"),
	}
}

func writeObjDir(t *testing.T, paths store.Paths, name string, marked bool) {
	t.Helper()
	dir := filepath.Join(paths.Store, "obj", name)
	require.NoError(t, os.MkdirAll(dir, 0o777))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "payload"), []byte("hello"), 0o644))
	if marked {
		require.NoError(t, os.WriteFile(filepath.Join(dir, markerFile), []byte("{}"), 0o644))
	}
}

func writeCacheDir(t *testing.T, paths store.Paths, name string) {
	t.Helper()
	dir := filepath.Join(paths.InputsCachePath(), name)
	require.NoError(t, os.MkdirAll(dir, 0o777))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data"), []byte("payload"), 0o644))
}

func saveSnapshot(t *testing.T, paths store.Paths, builds map[hash.ObjectHash]holo.BuildDef) {
	t.Helper()
	snapStore := snapshot.NewStore(paths)
	require.NoError(t, snapStore.Save(snapshot.Snapshot{
		ID:       snapshot.NewID(),
		Manifest: holo.Manifest{Builds: builds},
	}))
}

func TestCollectRemovesUnreferencedMarkedObject(t *testing.T) {
	paths := testPaths(t)
	writeObjDir(t, paths, "-orphanhash", true)

	result, err := Collect(context.Background(), paths, Options{})
	require.NoError(t, err)
	require.Len(t, result.Objects, 1)
	require.NoFileExists(t, filepath.Join(paths.Store, "obj", "-orphanhash", "payload"))
}

func TestCollectKeepsReferencedMarkedObject(t *testing.T) {
	paths := testPaths(t)
	h := hash.ObjectHash("livehash000000000000")
	writeObjDir(t, paths, "-"+string(h), true)
	saveSnapshot(t, paths, map[hash.ObjectHash]holo.BuildDef{h: {}})

	result, err := Collect(context.Background(), paths, Options{})
	require.NoError(t, err)
	require.Empty(t, result.Objects)
	require.DirExists(t, filepath.Join(paths.Store, "obj", "-"+string(h)))
}

func TestCollectRemovesMarkerlessObjectEvenWhenReferenced(t *testing.T) {
	paths := testPaths(t)
	h := hash.ObjectHash("incompletehash00000")
	writeObjDir(t, paths, "-"+string(h), false)
	saveSnapshot(t, paths, map[hash.ObjectHash]holo.BuildDef{h: {}})

	result, err := Collect(context.Background(), paths, Options{})
	require.NoError(t, err)
	require.Len(t, result.Objects, 1)
	require.NoDirExists(t, filepath.Join(paths.Store, "obj", "-"+string(h)))
}

func TestCollectDryRunReportsWithoutDeleting(t *testing.T) {
	paths := testPaths(t)
	writeObjDir(t, paths, "-orphanhash", true)

	result, err := Collect(context.Background(), paths, Options{DryRun: true})
	require.NoError(t, err)
	require.Len(t, result.Objects, 1)
	require.DirExists(t, filepath.Join(paths.Store, "obj", "-orphanhash"))
}

func TestCollectSweepsUnreferencedCacheEntry(t *testing.T) {
	paths := testPaths(t)
	writeCacheDir(t, paths, "deadbeef")

	result, err := Collect(context.Background(), paths, Options{})
	require.NoError(t, err)
	require.Len(t, result.CacheEntries, 1)
	require.NoDirExists(t, filepath.Join(paths.InputsCachePath(), "deadbeef"))
}

func TestCollectSkipsTmpStagingDirectory(t *testing.T) {
	paths := testPaths(t)
	require.NoError(t, os.MkdirAll(filepath.Join(paths.Store, "obj", ".tmp"), 0o777))

	result, err := Collect(context.Background(), paths, Options{})
	require.NoError(t, err)
	require.Empty(t, result.Objects)
	require.DirExists(t, filepath.Join(paths.Store, "obj", ".tmp"))
}
