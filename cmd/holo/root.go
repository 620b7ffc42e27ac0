package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/holoconf/holo"
	"github.com/holoconf/holo/store"
)

var (
	manifestPath string
	systemStore  bool
)

func init() {
	RootCmd.PersistentFlags().StringVar(&manifestPath, "manifest", "", "path to the desired-state manifest JSON file")
	RootCmd.PersistentFlags().BoolVar(&systemStore, "system", false, "use the system-wide store instead of the per-user store")

	RootCmd.AddCommand(PlanCmd)
	RootCmd.AddCommand(ApplyCmd)
	RootCmd.AddCommand(DestroyCmd)
	RootCmd.AddCommand(GCCmd)
	RootCmd.AddCommand(SnapshotCmd)
}

// RootCmd is the main command for the 'holo' binary.
var RootCmd = &cobra.Command{
	Use:   "holo",
	Short: "holo manages declarative, content-addressed builds and bindings",
	Long:  "holo manages declarative, content-addressed builds and bindings",
}

func resolvePaths() (store.Paths, error) {
	return store.Resolve(systemStore)
}

func loadManifest(path string) (holo.Manifest, error) {
	if path == "" {
		return holo.Manifest{}, fmt.Errorf("--manifest is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return holo.Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m holo.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return holo.Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return holo.Manifest{}, err
	}
	return m, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
