// Package store resolves the on-disk layout and provides cross-process
// advisory locking over the store root.
package store

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/holoconf/holo/hash"
)

const appName = "holo"

// Environment variable names are part of the wire contract and are not
// renamed alongside the module.
const (
	envRoot      = "SYSLUA_ROOT"
	envStore     = "SYSLUA_STORE"
	envSnapshots = "SYSLUA_SNAPSHOTS"
	envPlans     = "SYSLUA_PLANS"
)

// Paths resolves every on-disk location the engine touches, computed from
// environment overrides first and a platform default otherwise.
type Paths struct {
	Root      string
	Store     string
	Snapshots string
	Plans     string
	Cache     string
}

// Resolve computes Paths for the current process. system selects the
// elevated (system-wide) defaults over the per-user defaults when no
// environment override is present.
func Resolve(system bool) (Paths, error) {
	root := os.Getenv(envRoot)
	if root == "" {
		r, err := defaultRoot(system)
		if err != nil {
			return Paths{}, err
		}
		root = r
	}

	cache, err := defaultCache()
	if err != nil {
		return Paths{}, err
	}

	p := Paths{
		Root:      root,
		Store:     firstNonEmpty(os.Getenv(envStore), filepath.Join(root, "store")),
		Snapshots: firstNonEmpty(os.Getenv(envSnapshots), filepath.Join(root, "snapshots")),
		Plans:     firstNonEmpty(os.Getenv(envPlans), filepath.Join(root, "plans")),
		Cache:     cache,
	}
	return p, nil
}

// BuildPath returns the store path for a realized build's output
// directory: <store>/obj/<id-or-empty>-<hash>.
func (p Paths) BuildPath(id string, h hash.ObjectHash) string {
	return filepath.Join(p.Store, "obj", buildDirName(id, h))
}

func buildDirName(id string, h hash.ObjectHash) string {
	return id + "-" + string(h)
}

// BindPath returns the store path for a bind's persisted state directory:
// <store>/bind/<hash>.
func (p Paths) BindPath(h hash.ObjectHash) string {
	return filepath.Join(p.Store, "bind", string(h))
}

// LockPath returns the path of the store-wide advisory lock file.
func (p Paths) LockPath() string {
	return filepath.Join(p.Store, lockFilename)
}

// InputsCachePath returns the root of the shared content-addressed
// fetch_url download cache: <cache>/inputs/store/<sha256>/data.
func (p Paths) InputsCachePath() string {
	return filepath.Join(p.Cache, "inputs", "store")
}

func defaultRoot(system bool) (string, error) {
	if system {
		if runtime.GOOS == "windows" {
			drive := os.Getenv("SystemDrive")
			if drive == "" {
				drive = `C:`
			}
			return filepath.Join(drive+`\`, appName), nil
		}
		return filepath.Join("/", appName), nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

func defaultCache() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
