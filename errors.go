package holo

import (
	"fmt"

	"github.com/holoconf/holo/hash"
)

// CycleDetectedError is returned when the dependency DAG contains a cycle.
// It is fatal before execution starts; no partial state is produced.
type CycleDetectedError struct{}

func (err *CycleDetectedError) Error() string {
	return "dependency cycle detected"
}

// InvalidManifestError is returned when a manifest violates a structural
// invariant, such as a build depending on a bind.
type InvalidManifestError struct {
	Reason string
}

func (err *InvalidManifestError) Error() string {
	return fmt.Sprintf("invalid manifest: %s", err.Reason)
}

// BuildNotFoundError is returned by Manifest.Validate when an inputs
// reference names a build hash absent from the manifest. It indicates a
// corrupted manifest and is never retried. A $${build:...} placeholder
// whose prefix matches no build is reported by the scheduler as an
// InvalidManifestError instead.
type BuildNotFoundError struct {
	Hash hash.ObjectHash
}

func (err *BuildNotFoundError) Error() string {
	return fmt.Sprintf("build not found: %s", err.Hash)
}

// BindNotFoundError is the bind analogue of BuildNotFoundError.
type BindNotFoundError struct {
	Hash hash.ObjectHash
}

func (err *BindNotFoundError) Error() string {
	return fmt.Sprintf("bind not found: %s", err.Hash)
}

// FetchFailedError is returned when a FetchUrl action's HTTP GET fails at
// the transport level (after retries are exhausted).
type FetchFailedError struct {
	URL     string
	Message string
}

func (err *FetchFailedError) Error() string {
	return fmt.Sprintf("fetch failed for %s: %s", err.URL, err.Message)
}

// HashMismatchError is returned when a downloaded FetchUrl resource's
// SHA-256 does not match the declared digest. Never retried.
type HashMismatchError struct {
	URL      string
	Expected string
	Actual   string
}

func (err *HashMismatchError) Error() string {
	return fmt.Sprintf("hash mismatch for %s: expected %s, got %s", err.URL, err.Expected, err.Actual)
}

// CmdFailedError is returned when an Exec action's subprocess exits
// non-zero (or cannot be started).
type CmdFailedError struct {
	Cmd  string
	Code int // -1 if the process could not be started or signaled.
}

func (err *CmdFailedError) Error() string {
	return fmt.Sprintf("command failed with exit code %d: %s", err.Code, err.Cmd)
}

// DependencyFailedError marks a build or bind that was skipped because one
// of its dependencies failed. Non-propagating: the scheduler records the
// skip and continues with other independent subtrees.
type DependencyFailedError struct {
	Failed FailedDependency
}

func (err *DependencyFailedError) Error() string {
	return fmt.Sprintf("dependency failed: %s", err.Failed)
}

// ActionIndexOutOfBoundsError is returned when a $${action:N} placeholder
// references an index beyond the actions executed so far in the same
// definition.
type ActionIndexOutOfBoundsError struct {
	Index int
	Max   int
}

func (err *ActionIndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("action index %d out of bounds (max %d)", err.Index, err.Max)
}

// MarkerError wraps a failure to write or parse a build's completion
// marker. A marker that fails to parse is treated as both not-cached and
// corrupt; the build is re-realized and the marker rewritten.
type MarkerError struct {
	Op  string // "write", "read", or "parse"
	Err error
}

func (err *MarkerError) Error() string {
	return fmt.Sprintf("build marker %s: %v", err.Op, err.Err)
}

func (err *MarkerError) Unwrap() error {
	return err.Err
}
