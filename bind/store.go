package bind

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/holoconf/holo"
	"github.com/holoconf/holo/hash"
	"github.com/holoconf/holo/internal/metrics"
	"github.com/holoconf/holo/runner"
	"github.com/holoconf/holo/store"
)

// Store applies, updates, destroys, and drift-checks BindDefs against a
// content-addressed state store.
type Store struct {
	paths  store.Paths
	client *retryablehttp.Client
}

// NewStore returns a Store rooted at paths.
func NewStore(paths store.Paths) *Store {
	return &Store{paths: paths, client: runner.HTTPClient()}
}

// Apply runs create_actions with an empty prior state, resolves outputs,
// and persists state.json before the bind counts as applied. On any
// action failure, no state is written and the bind remains not-applied.
func (s *Store) Apply(ctx context.Context, def holo.BindDef, h hash.ObjectHash, buildPreds, bindPreds []runner.OutputSet) (holo.BindResult, error) {
	dir := s.paths.BindPath(h)
	result, err := s.runActions(ctx, def.CreateActions, def.Outputs, dir, buildPreds, bindPreds)
	if err != nil {
		metrics.BindsFailed.Inc()
		return holo.BindResult{}, err
	}
	if err := writeState(dir, State{Outputs: result.Outputs}); err != nil {
		metrics.BindsFailed.Inc()
		return holo.BindResult{}, fmt.Errorf("bind apply: %w", err)
	}
	metrics.BindsApplied.Inc()
	return result, nil
}

// Update transitions a bind from oldHash to newHash. If newDef has
// update_actions, they run with the old state's outputs exposed as a bind
// predecessor and the new state is written under newHash's directory; the
// old state directory is not removed. Otherwise (or when no old state
// exists) this is a compound Destroy(oldHash) + Apply(newHash), and both
// halves must succeed.
func (s *Store) Update(ctx context.Context, oldDef, newDef holo.BindDef, oldHash, newHash hash.ObjectHash, buildPreds, bindPreds []runner.OutputSet) (holo.BindResult, error) {
	if len(newDef.UpdateActions) == 0 {
		if err := s.Destroy(ctx, oldDef, oldHash); err != nil {
			metrics.BindsFailed.Inc()
			return holo.BindResult{}, err
		}
		return s.Apply(ctx, newDef, newHash, buildPreds, bindPreds)
	}

	oldDir := s.paths.BindPath(oldHash)
	oldState, ok, err := loadState(oldDir)
	if err != nil {
		metrics.BindsFailed.Inc()
		return holo.BindResult{}, fmt.Errorf("bind update: load old state: %w", err)
	}
	if !ok {
		if err := s.Destroy(ctx, oldDef, oldHash); err != nil {
			metrics.BindsFailed.Inc()
			return holo.BindResult{}, err
		}
		return s.Apply(ctx, newDef, newHash, buildPreds, bindPreds)
	}

	newDir := s.paths.BindPath(newHash)
	bindPreds = append(append([]runner.OutputSet{}, bindPreds...), *oldStateOutputSet(oldHash, oldState))
	result, err := s.runActions(ctx, newDef.UpdateActions, newDef.Outputs, newDir, buildPreds, bindPreds)
	if err != nil {
		metrics.BindsFailed.Inc()
		return holo.BindResult{}, err
	}
	if err := writeState(newDir, State{Outputs: result.Outputs}); err != nil {
		metrics.BindsFailed.Inc()
		return holo.BindResult{}, fmt.Errorf("bind update: %w", err)
	}
	metrics.BindsApplied.Inc()
	return result, nil
}

// Destroy runs destroy_actions against the persisted state, removing the
// bind's state directory on success. A bind with no state is already
// gone and Destroy is a no-op success.
func (s *Store) Destroy(ctx context.Context, def holo.BindDef, h hash.ObjectHash) error {
	dir := s.paths.BindPath(h)
	st, ok, err := loadState(dir)
	if err != nil {
		return fmt.Errorf("bind destroy: load state: %w", err)
	}
	if !ok {
		return nil
	}

	// destroy_actions reach the resolved outputs create_actions produced
	// via $${bind:<own-hash>:<key>}, never recomputed from the live
	// store: the bind's own state is exposed as its own predecessor
	// output set.
	own := []runner.OutputSet{{Hash: string(h), Outputs: st.Outputs}}
	r := runner.NewResolver(dir, nil, own)
	for _, a := range def.DestroyActions {
		if _, err := runner.RunAction(ctx, s.client, a, dir, s.paths.InputsCachePath(), r); err != nil {
			return err
		}
	}
	return os.RemoveAll(dir)
}

// CheckResult is the outcome of a drift check.
type CheckResult struct {
	Drifted bool
	Message string
}

// Check runs check_actions against persisted state. An empty
// check_actions list always reports no drift.
func (s *Store) Check(ctx context.Context, def holo.BindDef, h hash.ObjectHash) (CheckResult, error) {
	if len(def.CheckActions) == 0 {
		return CheckResult{Drifted: false}, nil
	}

	dir := s.paths.BindPath(h)
	st, ok, err := loadState(dir)
	if err != nil {
		return CheckResult{}, fmt.Errorf("bind check: load state: %w", err)
	}
	var own []runner.OutputSet
	if ok {
		own = []runner.OutputSet{{Hash: string(h), Outputs: st.Outputs}}
	}
	r := runner.NewResolver(dir, nil, own)

	for _, a := range def.CheckActions {
		if _, err := runner.RunAction(ctx, s.client, a, dir, s.paths.InputsCachePath(), r); err != nil {
			return CheckResult{Drifted: true, Message: err.Error()}, nil
		}
	}
	return CheckResult{Drifted: false}, nil
}

// LoadOutputs returns the persisted outputs of an already-applied bind,
// for callers (the scheduler's unchanged-bind path) that need a
// predecessor's resolved outputs without re-running any actions.
func (s *Store) LoadOutputs(h hash.ObjectHash) (map[string]string, bool, error) {
	st, ok, err := loadState(s.paths.BindPath(h))
	if err != nil {
		return nil, false, fmt.Errorf("bind load outputs: %w", err)
	}
	return st.Outputs, ok, nil
}

// Repair destroys and re-applies a drifted bind, best-effort on the
// destroy half (a bind that turns out already gone is not an error).
func (s *Store) Repair(ctx context.Context, def holo.BindDef, h hash.ObjectHash, buildPreds, bindPreds []runner.OutputSet) (holo.BindResult, error) {
	if err := s.Destroy(ctx, def, h); err != nil {
		return holo.BindResult{}, err
	}
	return s.Apply(ctx, def, h, buildPreds, bindPreds)
}

func (s *Store) runActions(ctx context.Context, actions []holo.Action, outputs map[string]string, dir string, buildPreds, bindPreds []runner.OutputSet) (holo.BindResult, error) {
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return holo.BindResult{}, fmt.Errorf("bind: %w", err)
	}
	r := runner.NewResolver(dir, buildPreds, bindPreds)

	actionResults := make([]holo.ActionResult, 0, len(actions))
	for _, a := range actions {
		output, err := runner.RunAction(ctx, s.client, a, dir, s.paths.InputsCachePath(), r)
		if err != nil {
			return holo.BindResult{}, err
		}
		actionResults = append(actionResults, holo.ActionResult{Output: output})
	}

	resolved, err := runner.ResolveOutputs(outputs, r)
	if err != nil {
		return holo.BindResult{}, err
	}
	return holo.BindResult{Outputs: resolved, ActionResults: actionResults}, nil
}

func oldStateOutputSet(h hash.ObjectHash, st State) *runner.OutputSet {
	return &runner.OutputSet{Hash: string(h), Outputs: st.Outputs}
}
