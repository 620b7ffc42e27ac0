package runner

import (
	"fmt"
	"strings"

	"github.com/holoconf/holo"
	"github.com/holoconf/holo/placeholder"
)

// OutputSet is the resolved named-output map of one already-committed
// build or bind, keyed by the full ObjectHash it was published under.
type OutputSet struct {
	Hash    string
	Outputs map[string]string
}

// Resolver implements placeholder.Resolver for one definition's
// execution: its own output directory, the outputs of actions it has
// already run, and a read-only view of every predecessor's resolved
// outputs, looked up by hash prefix.
type Resolver struct {
	out     string
	actions []string
	builds  []OutputSet
	binds   []OutputSet
}

// NewResolver constructs a Resolver for a definition whose own output
// directory is out, with predecessor build/bind outputs already
// resolved.
func NewResolver(out string, builds, binds []OutputSet) *Resolver {
	return &Resolver{out: out, builds: builds, binds: binds}
}

// RecordAction appends a just-completed action's resolved output, making
// it available to $${action:N} in subsequent actions of the same
// definition.
func (r *Resolver) RecordAction(output string) {
	r.actions = append(r.actions, output)
}

func (r *Resolver) Out() (string, error) {
	return r.out, nil
}

func (r *Resolver) Action(index int) (string, error) {
	if index < 0 || index >= len(r.actions) {
		return "", &holo.ActionIndexOutOfBoundsError{Index: index, Max: len(r.actions) - 1}
	}
	return r.actions[index], nil
}

func (r *Resolver) Build(prefix, outKey string) (string, error) {
	return lookup(r.builds, prefix, outKey)
}

func (r *Resolver) Bind(prefix, outKey string) (string, error) {
	return lookup(r.binds, prefix, outKey)
}

func lookup(sets []OutputSet, prefix, outKey string) (string, error) {
	var match *OutputSet
	for i := range sets {
		if strings.HasPrefix(sets[i].Hash, prefix) {
			if match != nil {
				return "", fmt.Errorf("hash prefix %q is ambiguous", prefix)
			}
			match = &sets[i]
		}
	}
	if match == nil {
		return "", fmt.Errorf("no entity with hash prefix %q", prefix)
	}
	v, ok := match.Outputs[outKey]
	if !ok {
		return "", fmt.Errorf("entity %s has no output %q", match.Hash, outKey)
	}
	return v, nil
}

var _ placeholder.Resolver = (*Resolver)(nil)
