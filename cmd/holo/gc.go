package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/holoconf/holo/gc"
	"github.com/holoconf/holo/store"
)

var (
	gcDryRun      bool
	gcParallelism int
)

func init() {
	GCCmd.Flags().BoolVar(&gcDryRun, "dry-run", false, "compute the sweep set without deleting anything")
	GCCmd.Flags().IntVar(&gcParallelism, "parallelism", 0, "bound concurrent directory removal (0 = 1)")
}

// GCCmd sweeps store objects and cached downloads unreachable from any
// saved snapshot.
var GCCmd = &cobra.Command{
	Use:   "gc",
	Short: "garbage collect unreferenced store objects and cached downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := resolvePaths()
		if err != nil {
			return err
		}

		result, err := gc.Collect(context.Background(), paths, gc.Options{
			DryRun:      gcDryRun,
			Parallelism: gcParallelism,
		})
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}
