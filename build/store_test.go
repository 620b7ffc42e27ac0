package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holoconf/holo"
	"github.com/holoconf/holo/runner"
	"github.com/holoconf/holo/store"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStore(store.Paths{Store: dir})
}

func TestRealizeWritesOutputAndMarker(t *testing.T) {
	s := testStore(t)
	def := holo.BuildDef{
		ID:           "touch-mark",
		ApplyActions: []holo.Action{{Type: holo.ActionWriteFile, Path: "$${out}/marker", Contents: "x"}},
		Outputs:      map[string]string{"marker": "$${out}/marker"},
	}
	h, err := def.ObjectHash()
	require.NoError(t, err)

	result, err := s.Realize(context.Background(), def, h, nil)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(result.StorePath, "marker"))
	require.FileExists(t, markerPath(result.StorePath))
	require.Equal(t, filepath.Join(result.StorePath, "marker"), result.Outputs["marker"])
}

func TestRealizeSecondCallIsCached(t *testing.T) {
	s := testStore(t)
	def := holo.BuildDef{
		ApplyActions: []holo.Action{{Type: holo.ActionWriteFile, Path: "$${out}/marker", Contents: "x"}},
	}
	h, err := def.ObjectHash()
	require.NoError(t, err)

	first, err := s.Realize(context.Background(), def, h, nil)
	require.NoError(t, err)

	info1, err := os.Stat(filepath.Join(first.StorePath, "marker"))
	require.NoError(t, err)

	second, err := s.Realize(context.Background(), def, h, nil)
	require.NoError(t, err)
	require.Equal(t, first.StorePath, second.StorePath)

	info2, err := os.Stat(filepath.Join(second.StorePath, "marker"))
	require.NoError(t, err)
	require.Equal(t, info1.ModTime(), info2.ModTime())
}

func TestRealizeFailureLeavesNoDirectory(t *testing.T) {
	s := testStore(t)
	def := holo.BuildDef{
		ApplyActions: []holo.Action{{Type: holo.ActionExec, Bin: "/bin/false"}},
	}
	h, err := def.ObjectHash()
	require.NoError(t, err)

	_, err = s.Realize(context.Background(), def, h, nil)
	require.Error(t, err)

	dir := s.paths.BuildPath(def.ID, h)
	_, statErr := os.Stat(dir)
	require.True(t, os.IsNotExist(statErr))
}

func TestRealizeExposesPredecessorOutputs(t *testing.T) {
	s := testStore(t)
	pred := []runner.OutputSet{{Hash: "abcdef0123456789abcd", Outputs: map[string]string{"bin": "/store/obj/x/bin"}}}

	def := holo.BuildDef{
		ApplyActions: []holo.Action{
			{Type: holo.ActionWriteFile, Path: "$${out}/ref.txt", Contents: "$${build:abcdef012345:bin}"},
		},
	}
	h, err := def.ObjectHash()
	require.NoError(t, err)

	result, err := s.Realize(context.Background(), def, h, pred)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(result.StorePath, "ref.txt"))
	require.NoError(t, err)
	require.Equal(t, "/store/obj/x/bin", string(data))
}
