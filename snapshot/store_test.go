package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holoconf/holo"
	"github.com/holoconf/holo/store"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(store.Paths{Snapshots: t.TempDir()})
}

func TestSaveAndLoadCurrent(t *testing.T) {
	s := testStore(t)
	snap := Snapshot{ID: NewID(), CreatedAt: 100, Manifest: holo.Manifest{}}
	require.NoError(t, s.Save(snap))

	loaded, ok, err := s.LoadCurrent()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, snap.ID, loaded.ID)
}

func TestLoadCurrentAbsentReturnsFalse(t *testing.T) {
	s := testStore(t)
	_, ok, err := s.LoadCurrent()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSaveAppendsIndexInCreationOrder(t *testing.T) {
	s := testStore(t)
	first := Snapshot{ID: NewID(), CreatedAt: 1}
	second := Snapshot{ID: NewID(), CreatedAt: 2}
	require.NoError(t, s.Save(first))
	require.NoError(t, s.Save(second))

	index, err := s.LoadIndex()
	require.NoError(t, err)
	require.Len(t, index, 2)
	require.Equal(t, first.ID, index[0].ID)
	require.Equal(t, second.ID, index[1].ID)
}

func TestTagAndUntag(t *testing.T) {
	s := testStore(t)
	snap := Snapshot{ID: NewID(), CreatedAt: 1}
	require.NoError(t, s.Save(snap))

	require.NoError(t, s.Tag(snap.ID, "release"))
	index, err := s.LoadIndex()
	require.NoError(t, err)
	require.Equal(t, []string{"release"}, index[0].Tags)

	require.NoError(t, s.Untag(snap.ID, ""))
	index, err = s.LoadIndex()
	require.NoError(t, err)
	require.Empty(t, index[0].Tags)
}

func TestDeleteRefusesCurrentSnapshot(t *testing.T) {
	s := testStore(t)
	snap := Snapshot{ID: NewID(), CreatedAt: 1}
	require.NoError(t, s.Save(snap))

	err := s.Delete(snap.ID)
	require.Error(t, err)
}

func TestDeleteRemovesNonCurrentSnapshot(t *testing.T) {
	s := testStore(t)
	first := Snapshot{ID: NewID(), CreatedAt: 1}
	second := Snapshot{ID: NewID(), CreatedAt: 2}
	require.NoError(t, s.Save(first))
	require.NoError(t, s.Save(second))

	require.NoError(t, s.Delete(first.ID))

	index, err := s.LoadIndex()
	require.NoError(t, err)
	require.Len(t, index, 1)
	require.Equal(t, second.ID, index[0].ID)

	current, ok, err := s.LoadCurrent()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, second.ID, current.ID)
}

func TestComputeDiffReapplySameManifestIsAllUnchanged(t *testing.T) {
	s := testStore(t)
	m := holo.Manifest{}
	snap := Snapshot{ID: NewID(), CreatedAt: 1, Manifest: m}
	require.NoError(t, s.Save(snap))

	d, err := s.ComputeDiff(m, snap.ID)
	require.NoError(t, err)
	require.True(t, d.IsEmpty())
}
