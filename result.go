package holo

import (
	"fmt"
	"runtime"

	"github.com/holoconf/holo/hash"
)

// FailedDependency identifies which upstream node caused a build or bind to
// be skipped.
type FailedDependency struct {
	Kind string // "build" or "bind"
	Hash hash.ObjectHash
}

// BuildDependency constructs a FailedDependency naming a failed build.
func BuildDependency(h hash.ObjectHash) FailedDependency {
	return FailedDependency{Kind: "build", Hash: h}
}

// BindDependency constructs a FailedDependency naming a failed bind.
func BindDependency(h hash.ObjectHash) FailedDependency {
	return FailedDependency{Kind: "bind", Hash: h}
}

// String renders "build:<hash>" or "bind:<hash>".
func (f FailedDependency) String() string {
	return fmt.Sprintf("%s:%s", f.Kind, f.Hash)
}

// ActionResult is the result of executing a single action within a build or
// bind, kept for logging and for the placeholder Resolver's $${action:N}
// lookups.
type ActionResult struct {
	// Output is the action's resolved output: stdout for Exec, the
	// downloaded file path for FetchUrl, the written file path for
	// WriteFile.
	Output string
}

// BuildResult is the outcome of realizing a single build.
type BuildResult struct {
	StorePath     string
	Outputs       map[string]string
	ActionResults []ActionResult
}

// BindResult is the outcome of applying (or updating) a single bind.
type BindResult struct {
	Outputs       map[string]string
	ActionResults []ActionResult
}

// DagResult is the full structured result of one scheduler run.
type DagResult struct {
	// Builds.
	Realized     map[hash.ObjectHash]BuildResult
	BuildFailed  *FailedBuild
	BuildSkipped map[hash.ObjectHash]FailedDependency

	// Binds.
	Applied     map[hash.ObjectHash]BindResult
	BindFailed  *FailedBind
	BindSkipped map[hash.ObjectHash]FailedDependency
}

// FailedBuild pairs the build hash that failed with its error.
type FailedBuild struct {
	Hash hash.ObjectHash
	Err  error
}

// FailedBind pairs the bind hash that failed with its error.
type FailedBind struct {
	Hash hash.ObjectHash
	Err  error
}

// NewDagResult returns a DagResult with all maps initialized.
func NewDagResult() *DagResult {
	return &DagResult{
		Realized:     map[hash.ObjectHash]BuildResult{},
		BuildSkipped: map[hash.ObjectHash]FailedDependency{},
		Applied:      map[hash.ObjectHash]BindResult{},
		BindSkipped:  map[hash.ObjectHash]FailedDependency{},
	}
}

// IsSuccess reports whether every build and bind succeeded.
func (r *DagResult) IsSuccess() bool {
	return r.BuildFailed == nil && len(r.BuildSkipped) == 0 &&
		r.BindFailed == nil && len(r.BindSkipped) == 0
}

// BuildTotal is the number of builds processed (realized + failed + skipped).
func (r *DagResult) BuildTotal() int {
	total := len(r.Realized) + len(r.BuildSkipped)
	if r.BuildFailed != nil {
		total++
	}
	return total
}

// BindTotal is the number of binds processed (applied + failed + skipped).
func (r *DagResult) BindTotal() int {
	total := len(r.Applied) + len(r.BindSkipped)
	if r.BindFailed != nil {
		total++
	}
	return total
}

// Total is the number of builds and binds processed.
func (r *DagResult) Total() int {
	return r.BuildTotal() + r.BindTotal()
}

// ExecuteConfig configures one scheduler run.
type ExecuteConfig struct {
	// Parallelism bounds concurrent build execution. Binds always run
	// sequentially: this field never applies to
	// them.
	Parallelism int

	// System selects the system-wide store/paths rather than the
	// per-user store.
	System bool
}

// DefaultExecuteConfig returns an ExecuteConfig with Parallelism set to the
// number of logical CPUs.
func DefaultExecuteConfig() ExecuteConfig {
	return ExecuteConfig{Parallelism: runtime.NumCPU()}
}
