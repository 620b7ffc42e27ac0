// Package snapshot records which Manifest is currently applied, and
// supports listing, tagging, diffing against, and deleting past
// snapshots.
package snapshot

import (
	"github.com/holoconf/holo"
)

// Snapshot records a fully evaluated Manifest as it stood at one
// successful apply.
type Snapshot struct {
	ID         string        `json:"id"`
	CreatedAt  int64         `json:"created_at"`
	ConfigPath string        `json:"config_path,omitempty"`
	Manifest   holo.Manifest `json:"manifest"`
}

// IndexEntry is one row of the snapshot index: enough to list and tag
// snapshots without loading their full manifest.
type IndexEntry struct {
	ID        string   `json:"id"`
	CreatedAt int64    `json:"created_at"`
	Tags      []string `json:"tags"`
}
