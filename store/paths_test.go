package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holoconf/holo/hash"
)

func TestResolveHonorsEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(envRoot, "")
	t.Setenv(envStore, filepath.Join(dir, "custom-store"))
	t.Setenv(envSnapshots, "")
	t.Setenv(envPlans, "")

	p, err := Resolve(false)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "custom-store"), p.Store)
}

func TestBuildPathOmitsMissingID(t *testing.T) {
	p := Paths{Store: "/store"}
	got := p.BuildPath("", hash.ObjectHash("0123456789abcdef0123"))
	require.Equal(t, "/store/obj/-0123456789abcdef0123", got)
}

func TestBuildPathIncludesID(t *testing.T) {
	p := Paths{Store: "/store"}
	got := p.BuildPath("mybuild", hash.ObjectHash("0123456789abcdef0123"))
	require.Equal(t, "/store/obj/mybuild-0123456789abcdef0123", got)
}

func TestBindPath(t *testing.T) {
	p := Paths{Store: "/store"}
	got := p.BindPath(hash.ObjectHash("0123456789abcdef0123"))
	require.Equal(t, "/store/bind/0123456789abcdef0123", got)
}
