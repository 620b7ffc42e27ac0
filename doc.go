// Package holo is a declarative, content-addressed configuration manager in
// the spirit of Nix. A desired system state is described as a Manifest of
// builds (pure, hermetic artifact producers) and binds (side-effectful
// applicators); the engine evaluates the manifest, diffs it against the
// previously applied Snapshot, executes the difference in dependency order,
// and records a new rollback-capable Snapshot.
//
// This package holds the data model shared by every subpackage: Action,
// BuildDef, BindDef, Manifest and the supporting InputsRef tree. Execution
// lives in the hash, placeholder, store, build, bind, diff, snapshot,
// scheduler and gc packages.
package holo
