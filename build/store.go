package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/holoconf/holo"
	"github.com/holoconf/holo/hash"
	"github.com/holoconf/holo/internal/hlog"
	"github.com/holoconf/holo/internal/metrics"
	"github.com/holoconf/holo/internal/uuid"
	"github.com/holoconf/holo/runner"
	"github.com/holoconf/holo/store"
)

// Store realizes BuildDefs against a content-addressed object store.
type Store struct {
	paths  store.Paths
	client *retryablehttp.Client
}

// NewStore returns a Store rooted at paths, with its own retrying HTTP
// client for FetchUrl actions.
func NewStore(paths store.Paths) *Store {
	return &Store{paths: paths, client: runner.HTTPClient()}
}

// Realize produces def's output directory exactly once across concurrent
// callers, returning its BuildResult. builds supplies the already-
// resolved outputs of def's predecessor builds, used by both the
// Resolver and by any $${build:...} placeholders inside def's own
// actions and outputs.
func (s *Store) Realize(ctx context.Context, def holo.BuildDef, h hash.ObjectHash, builds []runner.OutputSet) (holo.BuildResult, error) {
	log := hlog.Get(ctx)
	dir := s.paths.BuildPath(def.ID, h)

	if cached, ok := s.fastPath(dir, h, def); ok {
		log.WithField("hash", string(h)).WithField("dir", dir).Debug("build cache hit")
		metrics.BuildsCached.Inc()
		return cached, nil
	}

	lockFile, err := store.LockFileWait(ctx, dir+".lock", store.LockExclusive)
	if err != nil {
		return holo.BuildResult{}, err
	}
	defer lockFile.Close()

	// Re-check now that we hold the lock: another process may have
	// finished realizing this hash while we waited.
	if cached, ok := s.fastPath(dir, h, def); ok {
		metrics.BuildsCached.Inc()
		return cached, nil
	}

	result, err := s.realizeLocked(ctx, def, h, dir, builds)
	if err != nil {
		metrics.BuildsFailed.Inc()
		return holo.BuildResult{}, err
	}
	metrics.BuildsRealized.Inc()
	return result, nil
}

func (s *Store) fastPath(dir string, h hash.ObjectHash, def holo.BuildDef) (holo.BuildResult, bool) {
	if _, err := os.Stat(markerPath(dir)); err != nil {
		return holo.BuildResult{}, false
	}
	m, err := readMarker(dir)
	if err != nil || m.Hash != string(h) {
		return holo.BuildResult{}, false
	}
	r := runner.NewResolver(dir, nil, nil)
	outputs, err := runner.ResolveOutputs(def.Outputs, r)
	if err != nil {
		return holo.BuildResult{}, false
	}
	return holo.BuildResult{StorePath: dir, Outputs: outputs}, true
}

func (s *Store) realizeLocked(ctx context.Context, def holo.BuildDef, h hash.ObjectHash, dir string, builds []runner.OutputSet) (holo.BuildResult, error) {
	objDir := filepath.Join(s.paths.Store, "obj")
	if err := os.MkdirAll(filepath.Join(objDir, ".tmp"), 0o777); err != nil {
		return holo.BuildResult{}, fmt.Errorf("build: %w", err)
	}

	nonce := uuid.NewString()
	staging := filepath.Join(objDir, ".tmp", string(h)+"-"+nonce)
	if err := os.MkdirAll(staging, 0o777); err != nil {
		return holo.BuildResult{}, fmt.Errorf("build: %w", err)
	}

	r := runner.NewResolver(staging, builds, nil)
	actionResults := make([]holo.ActionResult, 0, len(def.ApplyActions))

	for _, a := range def.ApplyActions {
		output, err := runner.RunAction(ctx, s.client, a, staging, s.paths.InputsCachePath(), r)
		if err != nil {
			os.RemoveAll(staging)
			return holo.BuildResult{}, err
		}
		actionResults = append(actionResults, holo.ActionResult{Output: output})
	}

	// A directory already at dir without a valid marker is incomplete
	// (publish interrupted before the marker, or a corrupt marker): it is
	// replaced by this realization.
	if m, err := readMarker(dir); err != nil || m.Hash != string(h) {
		if err := os.RemoveAll(dir); err != nil {
			os.RemoveAll(staging)
			return holo.BuildResult{}, fmt.Errorf("build: %w", err)
		}
	}

	if err := os.Rename(staging, dir); err != nil {
		os.RemoveAll(staging)
		return holo.BuildResult{}, fmt.Errorf("build: publish: %w", err)
	}

	if err := writeMarker(dir, h, time.Now().Unix()); err != nil {
		return holo.BuildResult{}, err
	}

	finalResolver := runner.NewResolver(dir, builds, nil)
	for _, ar := range actionResults {
		finalResolver.RecordAction(ar.Output)
	}
	outputs, err := runner.ResolveOutputs(def.Outputs, finalResolver)
	if err != nil {
		return holo.BuildResult{}, err
	}

	return holo.BuildResult{StorePath: dir, Outputs: outputs, ActionResults: actionResults}, nil
}
