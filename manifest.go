package holo

import (
	"strconv"

	"github.com/holoconf/holo/hash"
)

// BuildDef is a pure, hermetic artifact producer: a recipe of actions run in
// an isolated working directory whose result is published into the store
// under its ObjectHash.
type BuildDef struct {
	ID           string            `json:"id,omitempty"`
	Inputs       InputsRef         `json:"inputs,omitempty"`
	ApplyActions []Action          `json:"apply_actions"`
	Outputs      map[string]string `json:"outputs,omitempty"`
}

// ObjectHash derives this build's content address from its canonical JSON
// encoding. Two BuildDefs with identical id, inputs,
// apply_actions and outputs always hash identically.
func (b BuildDef) ObjectHash() (hash.ObjectHash, error) {
	return hash.Of(b)
}

// Validate enforces BuildDef's structural invariants: at least one apply
// action, and no bind reference anywhere in Inputs.
func (b BuildDef) Validate() error {
	if len(b.ApplyActions) == 0 {
		return &InvalidManifestError{Reason: "build has no apply_actions"}
	}
	for i, a := range b.ApplyActions {
		if err := a.Validate(); err != nil {
			return &InvalidManifestError{Reason: "build apply_actions[" + strconv.Itoa(i) + "]: " + err.Error()}
		}
	}
	return b.Inputs.ValidateNoBindRefs()
}

// BindDef is a side-effectful applicator: actions that create, update,
// destroy and check some piece of external state (a file, a running
// process, a remote resource).
type BindDef struct {
	ID             string            `json:"id,omitempty"`
	Inputs         InputsRef         `json:"inputs,omitempty"`
	CreateActions  []Action          `json:"create_actions"`
	UpdateActions  []Action          `json:"update_actions,omitempty"`
	DestroyActions []Action          `json:"destroy_actions"`
	CheckActions   []Action          `json:"check_actions,omitempty"`
	Outputs        map[string]string `json:"outputs,omitempty"`
}

// ObjectHash derives this bind's content address from its canonical JSON
// encoding. Binds are keyed by content address the same as builds; whether
// a bind is updated in place or destroyed-and-recreated when its hash
// changes is a diff-time decision, not an identity one.
func (b BindDef) ObjectHash() (hash.ObjectHash, error) {
	return hash.Of(b)
}

// Validate enforces BindDef's structural invariants: non-empty create and
// destroy recipes, since every bind must be both applyable and reversible.
func (b BindDef) Validate() error {
	if len(b.CreateActions) == 0 {
		return &InvalidManifestError{Reason: "bind has no create_actions"}
	}
	if len(b.DestroyActions) == 0 {
		return &InvalidManifestError{Reason: "bind has no destroy_actions"}
	}
	for _, group := range [][]Action{b.CreateActions, b.UpdateActions, b.DestroyActions, b.CheckActions} {
		for i, a := range group {
			if err := a.Validate(); err != nil {
				return &InvalidManifestError{Reason: "bind action[" + strconv.Itoa(i) + "]: " + err.Error()}
			}
		}
	}
	return nil
}

// Manifest is the full desired-state document: every build and bind the
// engine should know about, keyed by their own content hash.
type Manifest struct {
	Builds   map[hash.ObjectHash]BuildDef `json:"builds"`
	Bindings map[hash.ObjectHash]BindDef  `json:"bindings"`
}

// Validate checks every build and bind definition, confirms each entry's
// map key matches its own derived ObjectHash (catching hand-edited or
// corrupted manifests), and confirms every InputsRef reference resolves to
// an entry present in the same manifest.
func (m Manifest) Validate() error {
	for k, b := range m.Builds {
		if err := b.Validate(); err != nil {
			return err
		}
		got, err := b.ObjectHash()
		if err != nil {
			return err
		}
		if got != k {
			return &InvalidManifestError{Reason: "build key " + string(k) + " does not match its content hash " + string(got)}
		}
		if err := m.validateRefs(b.Inputs); err != nil {
			return err
		}
	}
	for k, b := range m.Bindings {
		if err := b.Validate(); err != nil {
			return err
		}
		got, err := b.ObjectHash()
		if err != nil {
			return err
		}
		if got != k {
			return &InvalidManifestError{Reason: "bind key " + string(k) + " does not match its content hash " + string(got)}
		}
		if err := m.validateRefs(b.Inputs); err != nil {
			return err
		}
	}
	return nil
}

func (m Manifest) validateRefs(inputs InputsRef) error {
	var missing error
	inputs.WalkRefs(func(kind InputsRefKind, h hash.ObjectHash) {
		if missing != nil {
			return
		}
		switch kind {
		case InputsBuildRef:
			if _, ok := m.Builds[h]; !ok {
				missing = &BuildNotFoundError{Hash: h}
			}
		case InputsBindRef:
			if _, ok := m.Bindings[h]; !ok {
				missing = &BindNotFoundError{Hash: h}
			}
		}
	})
	return missing
}
