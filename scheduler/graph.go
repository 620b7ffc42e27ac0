// Package scheduler builds the dependency DAG over a Manifest's builds
// and binds and executes it: all builds first with bounded parallelism,
// then all binds strictly sequentially, with fail-stop and
// skip-propagation semantics.
package scheduler

import (
	"sort"
	"strings"

	"github.com/holoconf/holo"
	"github.com/holoconf/holo/hash"
	"github.com/holoconf/holo/placeholder"
)

// NodeKind discriminates a graph node as a build or a bind.
type NodeKind int

const (
	KindBuild NodeKind = iota
	KindBind
)

// Node identifies one build or bind in the graph.
type Node struct {
	Kind NodeKind
	Hash hash.ObjectHash
}

// Graph is the dependency DAG over (builds ∪ binds): edge u → v means u
// must complete before v may start.
type Graph struct {
	Nodes []Node
	// deps[v] lists every u with an edge u → v.
	deps map[Node][]Node
	// rdeps[u] lists every v with an edge u → v, the transitive-successor
	// direction used for skip propagation.
	rdeps map[Node][]Node
}

// BuildGraph constructs the dependency graph for m, resolving both typed
// InputsRef references and $${build:...}/$${bind:...} placeholder
// references embedded in action fields and output declarations. It
// rejects any build→bind edge with InvalidManifestError.
func BuildGraph(m holo.Manifest) (*Graph, error) {
	g := &Graph{deps: map[Node][]Node{}, rdeps: map[Node][]Node{}}

	buildHashes := sortedKeys(m.Builds)
	bindHashes := sortedKeys(m.Bindings)

	for _, h := range buildHashes {
		g.Nodes = append(g.Nodes, Node{Kind: KindBuild, Hash: h})
	}
	for _, h := range bindHashes {
		g.Nodes = append(g.Nodes, Node{Kind: KindBind, Hash: h})
	}

	for _, h := range buildHashes {
		def := m.Builds[h]
		node := Node{Kind: KindBuild, Hash: h}

		refs, err := collectRefs(def.Inputs, def.ApplyActions, def.Outputs, buildHashes, bindHashes)
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			if ref.Kind == KindBind {
				return nil, &holo.InvalidManifestError{Reason: "build " + string(h) + " depends on a bind"}
			}
			g.addEdge(ref, node)
		}
	}

	for _, h := range bindHashes {
		def := m.Bindings[h]
		node := Node{Kind: KindBind, Hash: h}

		allActions := make([]holo.Action, 0, len(def.CreateActions)+len(def.UpdateActions)+len(def.DestroyActions)+len(def.CheckActions))
		allActions = append(allActions, def.CreateActions...)
		allActions = append(allActions, def.UpdateActions...)
		allActions = append(allActions, def.DestroyActions...)
		allActions = append(allActions, def.CheckActions...)

		refs, err := collectRefs(def.Inputs, allActions, def.Outputs, buildHashes, bindHashes)
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			g.addEdge(ref, node)
		}
	}

	return g, nil
}

func (g *Graph) addEdge(from, to Node) {
	g.deps[to] = append(g.deps[to], from)
	g.rdeps[from] = append(g.rdeps[from], to)
}

// Deps returns the direct predecessors of n.
func (g *Graph) Deps(n Node) []Node {
	return g.deps[n]
}

// Successors returns the direct successors of n.
func (g *Graph) Successors(n Node) []Node {
	return g.rdeps[n]
}

// collectRefs gathers every build/bind this entity depends on: typed
// InputsRef references, plus $${build:...}/$${bind:...} placeholders
// found in its action fields and output expressions.
func collectRefs(inputs holo.InputsRef, actions []holo.Action, outputs map[string]string, buildHashes, bindHashes []hash.ObjectHash) ([]Node, error) {
	var nodes []Node
	seen := map[Node]bool{}

	add := func(kind NodeKind, h hash.ObjectHash) {
		n := Node{Kind: kind, Hash: h}
		if !seen[n] {
			seen[n] = true
			nodes = append(nodes, n)
		}
	}

	var walkErr error
	inputs.WalkRefs(func(kind holo.InputsRefKind, h hash.ObjectHash) {
		if walkErr != nil {
			return
		}
		switch kind {
		case holo.InputsBuildRef:
			add(KindBuild, h)
		case holo.InputsBindRef:
			add(KindBind, h)
		}
	})
	if walkErr != nil {
		return nil, walkErr
	}

	var strs []string
	for _, a := range actions {
		strs = append(strs, a.Fields()...)
	}
	for _, expr := range outputs {
		strs = append(strs, expr)
	}

	for _, s := range strs {
		refs, err := placeholder.FindRefs(s)
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			switch ref.Kind {
			case placeholder.KindBuild:
				h, err := resolvePrefix(buildHashes, ref.Prefix)
				if err != nil {
					return nil, err
				}
				add(KindBuild, h)
			case placeholder.KindBind:
				h, err := resolvePrefix(bindHashes, ref.Prefix)
				if err != nil {
					return nil, err
				}
				add(KindBind, h)
			}
		}
	}

	return nodes, nil
}

func resolvePrefix(hashes []hash.ObjectHash, prefix string) (hash.ObjectHash, error) {
	var match hash.ObjectHash
	found := false
	for _, h := range hashes {
		if strings.HasPrefix(string(h), prefix) {
			if found {
				return "", &holo.InvalidManifestError{Reason: "hash prefix " + prefix + " is ambiguous"}
			}
			match = h
			found = true
		}
	}
	if !found {
		return "", &holo.InvalidManifestError{Reason: "no entity matches hash prefix " + prefix}
	}
	return match, nil
}

func sortedKeys[V any](m map[hash.ObjectHash]V) []hash.ObjectHash {
	out := make([]hash.ObjectHash, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
