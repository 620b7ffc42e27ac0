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

var applyParallelism int

func init() {
	ApplyCmd.Flags().IntVar(&applyParallelism, "parallelism", 0, "bound concurrent build execution (0 = number of CPUs)")
}

// ApplyCmd realizes --manifest against the store and, on success, records
// it as the new current snapshot.
var ApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "realize the manifest against the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		desired, err := loadManifest(manifestPath)
		if err != nil {
			return err
		}
		paths, err := resolvePaths()
		if err != nil {
			return err
		}

		lock, err := store.Acquire(paths, store.LockExclusive, "apply")
		if err != nil {
			return err
		}
		defer lock.Close()

		snapStore := snapshot.NewStore(paths)
		currentSnap, hasCurrent, err := snapStore.LoadCurrent()
		if err != nil {
			return err
		}
		var current *holo.Manifest
		currentID := ""
		if hasCurrent {
			current = &currentSnap.Manifest
			currentID = currentSnap.ID
		}

		d, err := snapStore.ComputeDiff(desired, currentID)
		if err != nil {
			return err
		}

		config := holo.DefaultExecuteConfig()
		config.System = systemStore
		if applyParallelism > 0 {
			config.Parallelism = applyParallelism
		}

		buildStore := build.NewStore(paths)
		bindStore := bind.NewStore(paths)

		result, err := scheduler.Execute(context.Background(), desired, current, d, buildStore, bindStore, config)
		if err != nil {
			return err
		}

		if result.IsSuccess() {
			if err := snapStore.Save(snapshot.Snapshot{
				ID:         snapshot.NewID(),
				CreatedAt:  time.Now().Unix(),
				ConfigPath: manifestPath,
				Manifest:   desired,
			}); err != nil {
				return fmt.Errorf("apply succeeded but saving the snapshot failed: %w", err)
			}
		}

		if err := printJSON(toDagResultJSON(result)); err != nil {
			return err
		}
		if !result.IsSuccess() {
			return fmt.Errorf("apply completed with failures")
		}
		return nil
	},
}
