package bind

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holoconf/holo"
	"github.com/holoconf/holo/store"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStore(store.Paths{Store: dir})
}

func markBind() holo.BindDef {
	return holo.BindDef{
		ID:             "mark",
		CreateActions:  []holo.Action{{Type: holo.ActionExec, Bin: "/bin/sh", Args: []string{"-c", "echo hi > $${out}/f.txt"}}},
		DestroyActions: []holo.Action{{Type: holo.ActionExec, Bin: "/bin/rm", Args: []string{"-f", "$${out}/f.txt"}}},
		Outputs:        map[string]string{"f": "$${out}/f.txt"},
	}
}

func TestApplyWritesStateAndFile(t *testing.T) {
	s := testStore(t)
	def := markBind()
	h, err := def.ObjectHash()
	require.NoError(t, err)

	result, err := s.Apply(context.Background(), def, h, nil, nil)
	require.NoError(t, err)

	dir := s.paths.BindPath(h)
	require.FileExists(t, filepath.Join(dir, "f.txt"))
	require.FileExists(t, statePath(dir))
	require.Equal(t, filepath.Join(dir, "f.txt"), result.Outputs["f"])
}

func TestDestroyRemovesFileAndState(t *testing.T) {
	s := testStore(t)
	def := markBind()
	h, err := def.ObjectHash()
	require.NoError(t, err)

	_, err = s.Apply(context.Background(), def, h, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.Destroy(context.Background(), def, h))

	dir := s.paths.BindPath(h)
	_, statErr := os.Stat(dir)
	require.True(t, os.IsNotExist(statErr))
}

func TestDestroyOnMissingStateIsNoop(t *testing.T) {
	s := testStore(t)
	def := markBind()
	h, err := def.ObjectHash()
	require.NoError(t, err)

	require.NoError(t, s.Destroy(context.Background(), def, h))
}

func TestCheckNoActionsNeverDrifts(t *testing.T) {
	s := testStore(t)
	def := markBind()
	h, err := def.ObjectHash()
	require.NoError(t, err)

	result, err := s.Check(context.Background(), def, h)
	require.NoError(t, err)
	require.False(t, result.Drifted)
}

func TestCheckDetectsDrift(t *testing.T) {
	s := testStore(t)
	def := markBind()
	def.CheckActions = []holo.Action{{Type: holo.ActionExec, Bin: "/bin/sh", Args: []string{"-c", "test -f $${out}/f.txt"}}}
	h, err := def.ObjectHash()
	require.NoError(t, err)

	result, err := s.Apply(context.Background(), def, h, nil, nil)
	require.NoError(t, err)

	require.NoError(t, os.Remove(result.Outputs["f"]))

	checked, err := s.Check(context.Background(), def, h)
	require.NoError(t, err)
	require.True(t, checked.Drifted)
}

func TestRepairRestoresFile(t *testing.T) {
	s := testStore(t)
	def := markBind()
	h, err := def.ObjectHash()
	require.NoError(t, err)

	result, err := s.Apply(context.Background(), def, h, nil, nil)
	require.NoError(t, err)
	require.NoError(t, os.Remove(result.Outputs["f"]))

	repaired, err := s.Repair(context.Background(), def, h, nil, nil)
	require.NoError(t, err)
	require.FileExists(t, repaired.Outputs["f"])
}

func TestUpdateWithoutUpdateActionsIsDestroyThenApply(t *testing.T) {
	s := testStore(t)
	oldDef := markBind()
	oldHash, err := oldDef.ObjectHash()
	require.NoError(t, err)

	_, err = s.Apply(context.Background(), oldDef, oldHash, nil, nil)
	require.NoError(t, err)

	newDef := markBind()
	newDef.CreateActions = []holo.Action{{Type: holo.ActionExec, Bin: "/bin/sh", Args: []string{"-c", "echo bye > $${out}/f.txt"}}}
	newHash, err := newDef.ObjectHash()
	require.NoError(t, err)
	require.NotEqual(t, oldHash, newHash)

	result, err := s.Update(context.Background(), oldDef, newDef, oldHash, newHash, nil, nil)
	require.NoError(t, err)

	oldDir := s.paths.BindPath(oldHash)
	_, statErr := os.Stat(oldDir)
	require.True(t, os.IsNotExist(statErr))

	data, err := os.ReadFile(result.Outputs["f"])
	require.NoError(t, err)
	require.Equal(t, "bye\n", string(data))
}
