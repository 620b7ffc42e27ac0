package scheduler

import (
	"sort"

	"github.com/holoconf/holo"
)

// TopoSort returns nodes in topological order, ties broken by ascending
// hash for determinism. It returns CycleDetectedError if the graph
// restricted to kind contains a cycle.
func (g *Graph) TopoSort(kind NodeKind) ([]Node, error) {
	var subset []Node
	for _, n := range g.Nodes {
		if n.Kind == kind {
			subset = append(subset, n)
		}
	}

	inDegree := map[Node]int{}
	for _, n := range subset {
		inDegree[n] = 0
	}
	for _, n := range subset {
		for _, dep := range g.deps[n] {
			if dep.Kind == kind {
				inDegree[n]++
			}
		}
	}

	var ready []Node
	for _, n := range subset {
		if inDegree[n] == 0 {
			ready = append(ready, n)
		}
	}

	var order []Node
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i].Hash < ready[j].Hash })
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		for _, succ := range g.rdeps[n] {
			if succ.Kind != kind {
				continue
			}
			inDegree[succ]--
			if inDegree[succ] == 0 {
				ready = append(ready, succ)
			}
		}
	}

	if len(order) != len(subset) {
		return nil, &holo.CycleDetectedError{}
	}
	return order, nil
}
