package scheduler

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/holoconf/holo"
	"github.com/holoconf/holo/bind"
	"github.com/holoconf/holo/build"
	"github.com/holoconf/holo/diff"
	"github.com/holoconf/holo/hash"
	"github.com/holoconf/holo/internal/metrics"
	lsync "github.com/holoconf/holo/internal/sync"
	"github.com/holoconf/holo/runner"
)

// Execute runs the scheduler over desired against the (possibly nil)
// current manifest: it destroys orphaned binds, realizes builds with
// bounded parallelism, then applies binds strictly sequentially in
// topological order, with fail-stop and skip-propagation semantics.
//
// Cancellation via ctx is only honored between actions, never mid-action.
func Execute(ctx context.Context, desired holo.Manifest, current *holo.Manifest, d diff.StateDiff, buildStore *build.Store, bindStore *bind.Store, config holo.ExecuteConfig) (*holo.DagResult, error) {
	if current != nil && len(d.BindsToDestroy) > 0 {
		if err := destroyOrphanedBinds(ctx, *current, d.BindsToDestroy, bindStore); err != nil {
			return nil, err
		}
	}

	g, err := BuildGraph(desired)
	if err != nil {
		return nil, err
	}
	buildOrder, err := g.TopoSort(KindBuild)
	if err != nil {
		return nil, err
	}
	bindOrder, err := g.TopoSort(KindBind)
	if err != nil {
		return nil, err
	}

	result := holo.NewDagResult()

	parallelism := config.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	buildOutputs := runBuilds(ctx, buildOrder, desired, g, buildStore, parallelism, result)
	runBinds(ctx, bindOrder, desired, current, d, g, bindStore, buildOutputs, result)

	return result, nil
}

// destroyOrphanedBinds removes every bind present in current but absent
// from the desired manifest (neither matched by hash nor by id). Order
// is deterministic but otherwise unrelated to the desired graph, since
// these binds no longer participate in it.
func destroyOrphanedBinds(ctx context.Context, current holo.Manifest, toDestroy []hash.ObjectHash, bindStore *bind.Store) error {
	ordered := append([]hash.ObjectHash{}, toDestroy...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	var errs []error
	for _, h := range ordered {
		def, ok := current.Bindings[h]
		if !ok {
			continue
		}
		if err := bindStore.Destroy(ctx, def, h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// runBuilds realizes every build node with up to parallelism concurrent
// workers, honoring predecessor edges within the build subgraph. A
// failed build halts only its own transitive successors; independent
// subtrees keep running. It returns the resolved output set of every
// build that was realized or was already cached.
func runBuilds(ctx context.Context, order []Node, desired holo.Manifest, g *Graph, buildStore *build.Store, parallelism int, result *holo.DagResult) map[hash.ObjectHash]runner.OutputSet {
	outputs := map[hash.ObjectHash]runner.OutputSet{}
	done := make(map[Node]chan struct{}, len(order))
	for _, n := range order {
		done[n] = make(chan struct{})
	}

	failed := map[hash.ObjectHash]bool{}
	var mu lsync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(parallelism)

	for _, n := range order {
		n := n
		eg.Go(func() error {
			defer close(done[n])

			for _, dep := range g.Deps(n) {
				if dep.Kind != KindBuild {
					continue
				}
				select {
				case <-done[dep]:
				case <-egCtx.Done():
				}
			}

			mu.Lock()
			failedDep, blocked := firstFailedBuildDep(g.Deps(n), result)
			for _, dep := range g.Deps(n) {
				if !blocked && dep.Kind == KindBuild && failed[dep.Hash] {
					failedDep, blocked = holo.BuildDependency(dep.Hash), true
				}
			}
			if blocked {
				result.BuildSkipped[n.Hash] = failedDep
				metrics.BuildsSkipped.Inc()
				mu.Unlock()
				return nil
			}
			preds := buildPredOutputs(g, n, outputs)
			mu.Unlock()

			if egCtx.Err() != nil {
				return nil
			}

			res, err := buildStore.Realize(egCtx, desired.Builds[n.Hash], n.Hash, preds)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[n.Hash] = true
				if result.BuildFailed == nil {
					result.BuildFailed = &holo.FailedBuild{Hash: n.Hash, Err: err}
				}
				return nil
			}
			result.Realized[n.Hash] = res
			outputs[n.Hash] = runner.OutputSet{Hash: string(n.Hash), Outputs: res.Outputs}
			return nil
		})
	}

	eg.Wait()
	return outputs
}

// runBinds applies, updates, or reuses binds strictly sequentially in
// topological order. The first bind failure halts the phase: its
// transitive successors are recorded as skipped, and no bind after it
// in the order is attempted.
func runBinds(ctx context.Context, order []Node, desired holo.Manifest, current *holo.Manifest, d diff.StateDiff, g *Graph, bindStore *bind.Store, buildOutputs map[hash.ObjectHash]runner.OutputSet, result *holo.DagResult) {
	bindOutputs := map[hash.ObjectHash]runner.OutputSet{}

	updateOldHash := map[hash.ObjectHash]hash.ObjectHash{}
	for _, u := range d.BindsToUpdate {
		updateOldHash[u.NewHash] = u.OldHash
	}
	unchanged := map[hash.ObjectHash]bool{}
	for _, h := range d.BindsUnchanged {
		unchanged[h] = true
	}

	for _, n := range order {
		if result.BindFailed != nil {
			if isTransitiveSuccessor(g, Node{Kind: KindBind, Hash: result.BindFailed.Hash}, n) {
				result.BindSkipped[n.Hash] = holo.BindDependency(result.BindFailed.Hash)
				metrics.BindsSkipped.Inc()
			}
			continue
		}

		if ctx.Err() != nil {
			return
		}

		if failedDep, blocked := firstFailedBuildDep(g.Deps(n), result); blocked {
			result.BindSkipped[n.Hash] = failedDep
			metrics.BindsSkipped.Inc()
			continue
		}

		buildPreds := buildPredOutputs(g, n, buildOutputs)
		bindPreds := bindPredOutputs(g, n, bindOutputs)

		if unchanged[n.Hash] {
			outs, ok, err := bindStore.LoadOutputs(n.Hash)
			if err != nil || !ok {
				result.BindFailed = &holo.FailedBind{Hash: n.Hash, Err: missingStateErr(err)}
				continue
			}
			bindOutputs[n.Hash] = runner.OutputSet{Hash: string(n.Hash), Outputs: outs}
			continue
		}

		def := desired.Bindings[n.Hash]

		var res holo.BindResult
		var err error
		if oldHash, ok := updateOldHash[n.Hash]; ok && current != nil {
			res, err = bindStore.Update(ctx, current.Bindings[oldHash], def, oldHash, n.Hash, buildPreds, bindPreds)
		} else {
			res, err = bindStore.Apply(ctx, def, n.Hash, buildPreds, bindPreds)
		}

		if err != nil {
			result.BindFailed = &holo.FailedBind{Hash: n.Hash, Err: err}
			continue
		}
		result.Applied[n.Hash] = res
		bindOutputs[n.Hash] = runner.OutputSet{Hash: string(n.Hash), Outputs: res.Outputs}
	}
}

// firstFailedBuildDep reports the root FailedDependency of the first
// build predecessor of deps that failed or was itself skipped, if any.
func firstFailedBuildDep(deps []Node, result *holo.DagResult) (holo.FailedDependency, bool) {
	for _, dep := range deps {
		if dep.Kind != KindBuild {
			continue
		}
		if result.BuildFailed != nil && result.BuildFailed.Hash == dep.Hash {
			return holo.BuildDependency(dep.Hash), true
		}
		if fd, skipped := result.BuildSkipped[dep.Hash]; skipped {
			return fd, true
		}
	}
	return holo.FailedDependency{}, false
}

func buildPredOutputs(g *Graph, n Node, outputs map[hash.ObjectHash]runner.OutputSet) []runner.OutputSet {
	var preds []runner.OutputSet
	for _, dep := range g.Deps(n) {
		if dep.Kind != KindBuild {
			continue
		}
		if out, ok := outputs[dep.Hash]; ok {
			preds = append(preds, out)
		}
	}
	return preds
}

func bindPredOutputs(g *Graph, n Node, outputs map[hash.ObjectHash]runner.OutputSet) []runner.OutputSet {
	var preds []runner.OutputSet
	for _, dep := range g.Deps(n) {
		if dep.Kind != KindBind {
			continue
		}
		if out, ok := outputs[dep.Hash]; ok {
			preds = append(preds, out)
		}
	}
	return preds
}

// isTransitiveSuccessor reports whether to is reachable from from by
// following successor edges, used to scope skip-propagation to the
// failed node's actual downstream subtree.
func isTransitiveSuccessor(g *Graph, from, to Node) bool {
	seen := map[Node]bool{from: true}
	queue := []Node{from}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, succ := range g.Successors(n) {
			if succ == to {
				return true
			}
			if !seen[succ] {
				seen[succ] = true
				queue = append(queue, succ)
			}
		}
	}
	return false
}

func missingStateErr(err error) error {
	if err != nil {
		return err
	}
	return errors.New("bind marked unchanged has no persisted state")
}
