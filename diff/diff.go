// Package diff computes a StateDiff between a desired Manifest and the
// manifest of a current Snapshot, classifying each build and bind into
// the buckets the scheduler and reporting layers act on.
package diff

import (
	"github.com/samber/lo"

	"github.com/holoconf/holo"
	"github.com/holoconf/holo/hash"
)

// BindUpdate pairs a bind's old and new identity across a matched id.
type BindUpdate struct {
	ID      string
	OldHash hash.ObjectHash
	NewHash hash.ObjectHash
}

// StateDiff classifies every build and bind in the desired manifest
// against the current one.
type StateDiff struct {
	BuildsToRealize []hash.ObjectHash
	BuildsCached    []hash.ObjectHash
	BuildsOrphaned  []hash.ObjectHash

	BindsToApply   []hash.ObjectHash
	BindsToUpdate  []BindUpdate
	BindsToDestroy []hash.ObjectHash
	BindsUnchanged []hash.ObjectHash
}

// IsEmpty reports whether applying this diff would be a no-op: nothing
// to realize, no orphans, and no binds to apply, update, or destroy.
func (d StateDiff) IsEmpty() bool {
	return len(d.BuildsToRealize) == 0 && len(d.BuildsOrphaned) == 0 &&
		len(d.BindsToApply) == 0 && len(d.BindsToUpdate) == 0 && len(d.BindsToDestroy) == 0
}

// Compute classifies desired against current (which may be nil for a
// from-scratch apply).
func Compute(desired holo.Manifest, current *holo.Manifest) StateDiff {
	var d StateDiff

	d.BuildsToRealize, d.BuildsCached = diffBuilds(desired, current)
	if current != nil {
		d.BuildsOrphaned = orphanedBuilds(desired, *current)
	}

	d.BindsToApply, d.BindsToUpdate, d.BindsToDestroy, d.BindsUnchanged = diffBinds(desired, current)
	return d
}

func diffBuilds(desired holo.Manifest, current *holo.Manifest) (toRealize, cached []hash.ObjectHash) {
	for h := range desired.Builds {
		if current != nil {
			if _, ok := current.Builds[h]; ok {
				cached = append(cached, h)
				continue
			}
		}
		toRealize = append(toRealize, h)
	}
	return toRealize, cached
}

func orphanedBuilds(desired, current holo.Manifest) []hash.ObjectHash {
	return lo.Filter(lo.Keys(current.Builds), func(h hash.ObjectHash, _ int) bool {
		_, stillWanted := desired.Builds[h]
		return !stillWanted
	})
}

func diffBinds(desired holo.Manifest, current *holo.Manifest) (toApply []hash.ObjectHash, toUpdate []BindUpdate, toDestroy []hash.ObjectHash, unchanged []hash.ObjectHash) {
	if current == nil {
		for h := range desired.Bindings {
			toApply = append(toApply, h)
		}
		return toApply, toUpdate, toDestroy, unchanged
	}

	currentByID := lo.Associate(lo.Keys(current.Bindings), func(h hash.ObjectHash) (string, hash.ObjectHash) {
		return current.Bindings[h].ID, h
	})
	matchedCurrent := map[hash.ObjectHash]bool{}

	for h, def := range desired.Bindings {
		if _, ok := current.Bindings[h]; ok {
			unchanged = append(unchanged, h)
			matchedCurrent[h] = true
			continue
		}

		if def.ID != "" {
			if oldHash, ok := currentByID[def.ID]; ok {
				toUpdate = append(toUpdate, BindUpdate{ID: def.ID, OldHash: oldHash, NewHash: h})
				matchedCurrent[oldHash] = true
				continue
			}
		}

		toApply = append(toApply, h)
	}

	for h := range current.Bindings {
		if !matchedCurrent[h] {
			toDestroy = append(toDestroy, h)
		}
	}
	return toApply, toUpdate, toDestroy, unchanged
}
