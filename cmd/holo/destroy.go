package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/holoconf/holo"
	"github.com/holoconf/holo/bind"
	"github.com/holoconf/holo/build"
	"github.com/holoconf/holo/scheduler"
	"github.com/holoconf/holo/snapshot"
	"github.com/holoconf/holo/store"
)

// DestroyCmd tears down every bind in the current snapshot, then records
// an empty manifest as the new current snapshot. Builds are never
// destroyed directly; an empty manifest simply makes them GC-eligible.
var DestroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "destroy every bind in the current snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := resolvePaths()
		if err != nil {
			return err
		}

		lock, err := store.Acquire(paths, store.LockExclusive, "destroy")
		if err != nil {
			return err
		}
		defer lock.Close()

		snapStore := snapshot.NewStore(paths)
		currentSnap, hasCurrent, err := snapStore.LoadCurrent()
		if err != nil {
			return err
		}
		if !hasCurrent {
			return fmt.Errorf("nothing to destroy: no current snapshot")
		}

		empty := holo.Manifest{}
		d, err := snapStore.ComputeDiff(empty, currentSnap.ID)
		if err != nil {
			return err
		}

		config := holo.DefaultExecuteConfig()
		config.System = systemStore

		buildStore := build.NewStore(paths)
		bindStore := bind.NewStore(paths)

		result, err := scheduler.Execute(context.Background(), empty, &currentSnap.Manifest, d, buildStore, bindStore, config)
		if err != nil {
			return err
		}

		if result.IsSuccess() {
			if err := snapStore.Save(snapshot.Snapshot{
				ID:        snapshot.NewID(),
				CreatedAt: time.Now().Unix(),
				Manifest:  empty,
			}); err != nil {
				return fmt.Errorf("destroy succeeded but saving the snapshot failed: %w", err)
			}
		}

		if err := printJSON(toDagResultJSON(result)); err != nil {
			return err
		}
		if !result.IsSuccess() {
			return fmt.Errorf("destroy completed with failures")
		}
		return nil
	},
}
