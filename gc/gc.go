// Package gc marks every ObjectHash reachable from a saved snapshot and
// sweeps whatever the store and input cache hold that isn't one of them,
// the same mark-then-sweep shape a container registry's own garbage
// collector uses over its blob store.
package gc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/holoconf/holo/build"
	"github.com/holoconf/holo/internal/hlog"
	"github.com/holoconf/holo/internal/metrics"
	lsync "github.com/holoconf/holo/internal/sync"
	"github.com/holoconf/holo/snapshot"
	"github.com/holoconf/holo/store"
)

// Options configures a Collect run.
type Options struct {
	// DryRun computes the sweep set without deleting anything.
	DryRun bool

	// Parallelism bounds the number of directories stat'd and removed
	// concurrently. Values below 1 are treated as 1.
	Parallelism int
}

// Removed describes one store or cache directory the sweep touched.
type Removed struct {
	Path  string
	Bytes int64
}

// Result reports what a Collect run found and, unless DryRun, removed.
type Result struct {
	Objects      []Removed
	CacheEntries []Removed
	BytesFreed   int64
}

// Collect acquires an Exclusive store lock, computes the root set from
// every saved snapshot's builds and bindings, and sweeps <store>/obj/*
// and <cache>/inputs/store/* against it.
func Collect(ctx context.Context, paths store.Paths, opts Options) (Result, error) {
	lock, err := store.Acquire(paths, store.LockExclusive, "gc")
	if err != nil {
		return Result{}, fmt.Errorf("gc: %w", err)
	}
	defer lock.Close()

	roots, err := collectRoots(paths)
	if err != nil {
		return Result{}, fmt.Errorf("gc: %w", err)
	}

	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	objResult, err := sweepObjects(ctx, paths, roots, opts.DryRun, parallelism)
	if err != nil {
		return Result{}, fmt.Errorf("gc: %w", err)
	}
	cacheResult, err := sweepCache(ctx, paths, roots, opts.DryRun, parallelism)
	if err != nil {
		return Result{}, fmt.Errorf("gc: %w", err)
	}

	result := Result{
		Objects:      objResult,
		CacheEntries: cacheResult,
		BytesFreed:   sumBytes(objResult) + sumBytes(cacheResult),
	}

	metrics.GCObjectsDeleted.Add(float64(len(objResult) + len(cacheResult)))
	metrics.GCBytesFreed.Add(float64(result.BytesFreed))

	log := hlog.Get(ctx)
	log.WithField("objects", len(objResult)).
		WithField("cache_entries", len(cacheResult)).
		WithField("bytes_freed", humanize.Bytes(uint64(result.BytesFreed))).
		WithField("dry_run", opts.DryRun).
		Info("gc complete")

	return result, nil
}

// collectRoots loads every saved snapshot and unions the ObjectHash of
// every build and binding it names.
func collectRoots(paths store.Paths) (map[string]bool, error) {
	snapStore := snapshot.NewStore(paths)
	index, err := snapStore.LoadIndex()
	if err != nil {
		return nil, err
	}

	roots := make(map[string]bool)
	for _, entry := range index {
		snap, err := snapStore.LoadSnapshot(entry.ID)
		if err != nil {
			return nil, fmt.Errorf("load snapshot %s: %w", entry.ID, err)
		}
		for h := range snap.Manifest.Builds {
			roots[string(h)] = true
		}
		for h := range snap.Manifest.Bindings {
			roots[string(h)] = true
		}
	}
	return roots, nil
}

// sweepObjects removes every <store>/obj/<id>-<hash> directory whose hash
// suffix is not a root, or which lacks a completion marker. The .tmp
// staging directory build.Store stages in-progress realizations under is
// never itself a candidate.
func sweepObjects(ctx context.Context, paths store.Paths, roots map[string]bool, dryRun bool, parallelism int) ([]Removed, error) {
	objDir := filepath.Join(paths.Store, "obj")
	entries, err := os.ReadDir(objDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var candidates []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == ".tmp" {
			continue
		}
		if roots[hashSuffix(e.Name())] && build.HasMarker(filepath.Join(objDir, e.Name())) {
			continue
		}
		candidates = append(candidates, e.Name())
	}

	return sweepDirs(ctx, objDir, candidates, dryRun, parallelism)
}

// sweepCache removes every <cache>/inputs/store/<sha256> directory whose
// hash suffix is not a root.
func sweepCache(ctx context.Context, paths store.Paths, roots map[string]bool, dryRun bool, parallelism int) ([]Removed, error) {
	cacheDir := paths.InputsCachePath()
	entries, err := os.ReadDir(cacheDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var candidates []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if roots[hashSuffix(e.Name())] {
			continue
		}
		candidates = append(candidates, e.Name())
	}

	return sweepDirs(ctx, cacheDir, candidates, dryRun, parallelism)
}

// sweepDirs stats each of root/name concurrently (bounded by parallelism)
// and, unless dryRun, removes it. Stat and removal errors on one entry do
// not abort the sweep of the others.
func sweepDirs(ctx context.Context, root string, names []string, dryRun bool, parallelism int) ([]Removed, error) {
	var mu lsync.Mutex
	var removed []Removed

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(parallelism)

	for _, name := range names {
		name := name
		eg.Go(func() error {
			if egCtx.Err() != nil {
				return nil
			}
			path := filepath.Join(root, name)
			size, err := dirSize(path)
			if err != nil {
				return nil
			}
			if !dryRun {
				if err := os.RemoveAll(path); err != nil {
					return nil
				}
			}
			mu.Lock()
			removed = append(removed, Removed{Path: path, Bytes: size})
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return removed, nil
}

// hashSuffix extracts the hash portion of a store directory name, the
// substring after the last '-'. Input cache entries have no '-' at all,
// so the whole name is the hash.
func hashSuffix(name string) string {
	idx := strings.LastIndex(name, "-")
	if idx == -1 {
		return name
	}
	return name[idx+1:]
}

func dirSize(path string) (int64, error) {
	var total int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

func sumBytes(removed []Removed) int64 {
	var total int64
	for _, r := range removed {
		total += r.Bytes
	}
	return total
}
