package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/holoconf/holo/snapshot"
	"github.com/holoconf/holo/store"
)

var (
	snapshotTagName string
)

func init() {
	SnapshotCmd.AddCommand(SnapshotListCmd)
	SnapshotCmd.AddCommand(SnapshotShowCmd)
	SnapshotCmd.AddCommand(SnapshotTagCmd)
	SnapshotCmd.AddCommand(SnapshotUntagCmd)
	SnapshotCmd.AddCommand(SnapshotDiffCmd)
	SnapshotCmd.AddCommand(SnapshotDeleteCmd)

	SnapshotTagCmd.Flags().StringVar(&snapshotTagName, "name", "", "tag name to add")
	SnapshotUntagCmd.Flags().StringVar(&snapshotTagName, "name", "", "tag name to remove (omit to clear all tags)")
}

// SnapshotCmd groups the read/mutate operations over saved snapshots.
var SnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "inspect and manage saved snapshots",
}

// SnapshotListCmd requires only a Shared lock: it never mutates.
var SnapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "list every saved snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := resolvePaths()
		if err != nil {
			return err
		}
		lock, err := store.Acquire(paths, store.LockShared, "snapshot list")
		if err != nil {
			return err
		}
		defer lock.Close()

		index, err := snapshot.NewStore(paths).LoadIndex()
		if err != nil {
			return err
		}
		return printJSON(index)
	},
}

// SnapshotShowCmd prints the full manifest of one saved snapshot.
var SnapshotShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "print one saved snapshot's manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := resolvePaths()
		if err != nil {
			return err
		}
		lock, err := store.Acquire(paths, store.LockShared, "snapshot show")
		if err != nil {
			return err
		}
		defer lock.Close()

		snap, err := snapshot.NewStore(paths).LoadSnapshot(args[0])
		if err != nil {
			return err
		}
		return printJSON(snap)
	},
}

// SnapshotTagCmd adds a tag to a snapshot's index entry.
var SnapshotTagCmd = &cobra.Command{
	Use:   "tag <id>",
	Short: "add a tag to a saved snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if snapshotTagName == "" {
			return fmt.Errorf("--name is required")
		}
		paths, err := resolvePaths()
		if err != nil {
			return err
		}
		lock, err := store.Acquire(paths, store.LockExclusive, "snapshot tag")
		if err != nil {
			return err
		}
		defer lock.Close()

		return snapshot.NewStore(paths).Tag(args[0], snapshotTagName)
	},
}

// SnapshotUntagCmd removes a tag, or clears all tags when --name is omitted.
var SnapshotUntagCmd = &cobra.Command{
	Use:   "untag <id>",
	Short: "remove a tag from a saved snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := resolvePaths()
		if err != nil {
			return err
		}
		lock, err := store.Acquire(paths, store.LockExclusive, "snapshot untag")
		if err != nil {
			return err
		}
		defer lock.Close()

		return snapshot.NewStore(paths).Untag(args[0], snapshotTagName)
	},
}

// SnapshotDiffCmd computes a StateDiff between --manifest and a saved
// snapshot (or an empty store, if <id> is omitted).
var SnapshotDiffCmd = &cobra.Command{
	Use:   "diff [id]",
	Short: "diff --manifest against a saved snapshot",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desired, err := loadManifest(manifestPath)
		if err != nil {
			return err
		}
		paths, err := resolvePaths()
		if err != nil {
			return err
		}
		lock, err := store.Acquire(paths, store.LockShared, "snapshot diff")
		if err != nil {
			return err
		}
		defer lock.Close()

		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		d, err := snapshot.NewStore(paths).ComputeDiff(desired, id)
		if err != nil {
			return err
		}
		return printJSON(d)
	},
}

// SnapshotDeleteCmd removes a saved snapshot other than the current one.
var SnapshotDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "delete a saved snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := resolvePaths()
		if err != nil {
			return err
		}
		lock, err := store.Acquire(paths, store.LockExclusive, "snapshot delete")
		if err != nil {
			return err
		}
		defer lock.Close()

		return snapshot.NewStore(paths).Delete(args[0])
	},
}
