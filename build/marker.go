// Package build realizes BuildDefs into content-addressed output
// directories: fast-path cache checks, per-hash locking,
// staged isolated execution, and atomic publish.
package build

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/holoconf/holo"
	"github.com/holoconf/holo/hash"
)

const markerFilename = ".syslua-build-complete"

// Marker is the JSON completion marker written into a build's output
// directory after a successful atomic rename. Its presence is the sole
// indicator that the directory is complete.
type Marker struct {
	Hash        string `json:"hash"`
	CompletedAt int64  `json:"completed_at"`
}

func markerPath(dir string) string {
	return filepath.Join(dir, markerFilename)
}

// HasMarker reports whether dir carries a completion marker, regardless of
// its contents. Used by gc to tell a fully published build directory apart
// from an abandoned one that never finished publishing.
func HasMarker(dir string) bool {
	_, err := os.Stat(markerPath(dir))
	return err == nil
}

// readMarker reads and parses a build directory's completion marker. Any
// read or parse failure is reported via MarkerError and treated by the
// caller as both not-cached and corrupt.
func readMarker(dir string) (Marker, error) {
	data, err := os.ReadFile(markerPath(dir))
	if err != nil {
		return Marker{}, &holo.MarkerError{Op: "read", Err: err}
	}
	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return Marker{}, &holo.MarkerError{Op: "parse", Err: err}
	}
	return m, nil
}

func writeMarker(dir string, h hash.ObjectHash, completedAt int64) error {
	m := Marker{Hash: string(h), CompletedAt: completedAt}
	data, err := json.Marshal(m)
	if err != nil {
		return &holo.MarkerError{Op: "write", Err: err}
	}
	if err := os.WriteFile(markerPath(dir), data, 0o644); err != nil {
		return &holo.MarkerError{Op: "write", Err: err}
	}
	return nil
}
