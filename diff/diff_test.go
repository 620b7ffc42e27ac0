package diff

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holoconf/holo"
	"github.com/holoconf/holo/hash"
)

func build(contents string) holo.BuildDef {
	return holo.BuildDef{ApplyActions: []holo.Action{{Type: holo.ActionWriteFile, Path: "/out", Contents: contents}}}
}

func mustHash(t *testing.T, v interface{ ObjectHash() (hash.ObjectHash, error) }) hash.ObjectHash {
	t.Helper()
	h, err := v.ObjectHash()
	require.NoError(t, err)
	return h
}

func TestComputeFreshApplyHasNoOrphansOrCached(t *testing.T) {
	b := build("a")
	h := mustHash(t, b)
	desired := holo.Manifest{Builds: map[hash.ObjectHash]holo.BuildDef{h: b}}

	d := Compute(desired, nil)
	require.Equal(t, []hash.ObjectHash{h}, d.BuildsToRealize)
	require.Empty(t, d.BuildsCached)
	require.Empty(t, d.BuildsOrphaned)
	require.False(t, d.IsEmpty())
}

func TestComputeReapplySameManifestIsAllCachedAndUnchanged(t *testing.T) {
	b := build("a")
	h := mustHash(t, b)
	bind := holo.BindDef{
		CreateActions:  []holo.Action{{Type: holo.ActionExec, Bin: "/bin/true"}},
		DestroyActions: []holo.Action{{Type: holo.ActionExec, Bin: "/bin/true"}},
	}
	bh := mustHash(t, bind)

	m := holo.Manifest{
		Builds:   map[hash.ObjectHash]holo.BuildDef{h: b},
		Bindings: map[hash.ObjectHash]holo.BindDef{bh: bind},
	}

	d := Compute(m, &m)
	require.Empty(t, d.BuildsToRealize)
	require.Equal(t, []hash.ObjectHash{h}, d.BuildsCached)
	require.Equal(t, []hash.ObjectHash{bh}, d.BindsUnchanged)
	require.Empty(t, d.BindsToApply)
	require.Empty(t, d.BindsToUpdate)
	require.Empty(t, d.BindsToDestroy)
	require.True(t, d.IsEmpty())
}

func TestComputeOrphanedBuild(t *testing.T) {
	old := build("old")
	oh := mustHash(t, old)
	current := holo.Manifest{Builds: map[hash.ObjectHash]holo.BuildDef{oh: old}}
	desired := holo.Manifest{Builds: map[hash.ObjectHash]holo.BuildDef{}}

	d := Compute(desired, &current)
	require.Equal(t, []hash.ObjectHash{oh}, d.BuildsOrphaned)
}

func TestComputeBindUpdateMatchedByID(t *testing.T) {
	oldBind := holo.BindDef{
		ID:             "svc",
		CreateActions:  []holo.Action{{Type: holo.ActionExec, Bin: "/bin/true"}},
		DestroyActions: []holo.Action{{Type: holo.ActionExec, Bin: "/bin/true"}},
	}
	oldHash := mustHash(t, oldBind)

	newBind := oldBind
	newBind.CreateActions = []holo.Action{{Type: holo.ActionExec, Bin: "/bin/echo"}}
	newHash := mustHash(t, newBind)
	require.NotEqual(t, oldHash, newHash)

	current := holo.Manifest{Bindings: map[hash.ObjectHash]holo.BindDef{oldHash: oldBind}}
	desired := holo.Manifest{Bindings: map[hash.ObjectHash]holo.BindDef{newHash: newBind}}

	d := Compute(desired, &current)
	require.Len(t, d.BindsToUpdate, 1)
	require.Equal(t, "svc", d.BindsToUpdate[0].ID)
	require.Equal(t, oldHash, d.BindsToUpdate[0].OldHash)
	require.Equal(t, newHash, d.BindsToUpdate[0].NewHash)
	require.Empty(t, d.BindsToApply)
	require.Empty(t, d.BindsToDestroy)
}

func TestComputeBindWithoutIDIsApplyDestroyPair(t *testing.T) {
	oldBind := holo.BindDef{
		CreateActions:  []holo.Action{{Type: holo.ActionExec, Bin: "/bin/true"}},
		DestroyActions: []holo.Action{{Type: holo.ActionExec, Bin: "/bin/true"}},
	}
	oldHash := mustHash(t, oldBind)

	newBind := holo.BindDef{
		CreateActions:  []holo.Action{{Type: holo.ActionExec, Bin: "/bin/echo"}},
		DestroyActions: []holo.Action{{Type: holo.ActionExec, Bin: "/bin/true"}},
	}
	newHash := mustHash(t, newBind)

	current := holo.Manifest{Bindings: map[hash.ObjectHash]holo.BindDef{oldHash: oldBind}}
	desired := holo.Manifest{Bindings: map[hash.ObjectHash]holo.BindDef{newHash: newBind}}

	d := Compute(desired, &current)
	require.Equal(t, []hash.ObjectHash{newHash}, d.BindsToApply)
	require.Equal(t, []hash.ObjectHash{oldHash}, d.BindsToDestroy)
	require.Empty(t, d.BindsToUpdate)
}
