package main

import (
	"github.com/spf13/cobra"

	"github.com/holoconf/holo/snapshot"
	"github.com/holoconf/holo/store"
)

// PlanCmd prints the StateDiff between --manifest and the current
// snapshot, without touching the store.
var PlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "show what apply would do, without doing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		desired, err := loadManifest(manifestPath)
		if err != nil {
			return err
		}
		paths, err := resolvePaths()
		if err != nil {
			return err
		}

		lock, err := store.Acquire(paths, store.LockShared, "plan")
		if err != nil {
			return err
		}
		defer lock.Close()

		snapStore := snapshot.NewStore(paths)
		current, ok, err := snapStore.LoadCurrent()
		if err != nil {
			return err
		}
		currentID := ""
		if ok {
			currentID = current.ID
		}

		d, err := snapStore.ComputeDiff(desired, currentID)
		if err != nil {
			return err
		}
		return printJSON(d)
	},
}
