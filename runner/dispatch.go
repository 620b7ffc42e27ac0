package runner

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/holoconf/holo"
	"github.com/holoconf/holo/placeholder"
)

// RunAction substitutes placeholders across a's fields against r, then
// dispatches to the action's primitive, recording the result into r so
// later actions in the same definition can reference it via
// $${action:N}. cacheDir is the shared content-addressed download cache
// fetch_url actions read through and populate.
func RunAction(ctx context.Context, client *retryablehttp.Client, a holo.Action, out, cacheDir string, r *Resolver) (string, error) {
	resolved, err := substituteAction(a, r)
	if err != nil {
		return "", err
	}

	var output string
	switch resolved.Type {
	case holo.ActionFetchURL:
		output, err = FetchURL(client, cacheDir, out, resolved.URL, resolved.SHA256)
	case holo.ActionExec:
		output, err = RunExec(ctx, resolved, out, resolved.Env, resolved.Cwd)
	case holo.ActionWriteFile:
		output, err = WriteFile(out, resolved.Path, resolved.Contents)
	default:
		return "", fmt.Errorf("unknown action type %q", resolved.Type)
	}
	if err != nil {
		return "", err
	}

	r.RecordAction(output)
	return output, nil
}

// substituteAction returns a copy of a with every string field passed
// through placeholder.Substitute.
func substituteAction(a holo.Action, r *Resolver) (holo.Action, error) {
	out := a

	sub := func(s string) (string, error) {
		if s == "" {
			return "", nil
		}
		return placeholder.Substitute(s, r)
	}

	var err error
	if out.URL, err = sub(a.URL); err != nil {
		return holo.Action{}, err
	}
	if out.SHA256, err = sub(a.SHA256); err != nil {
		return holo.Action{}, err
	}
	if out.Bin, err = sub(a.Bin); err != nil {
		return holo.Action{}, err
	}
	if out.Cwd, err = sub(a.Cwd); err != nil {
		return holo.Action{}, err
	}
	if out.Path, err = sub(a.Path); err != nil {
		return holo.Action{}, err
	}
	if out.Contents, err = sub(a.Contents); err != nil {
		return holo.Action{}, err
	}
	if len(a.Args) > 0 {
		out.Args = make([]string, len(a.Args))
		for i, arg := range a.Args {
			if out.Args[i], err = sub(arg); err != nil {
				return holo.Action{}, err
			}
		}
	}
	if len(a.Env) > 0 {
		out.Env = make(map[string]string, len(a.Env))
		for k, v := range a.Env {
			if out.Env[k], err = sub(v); err != nil {
				return holo.Action{}, err
			}
		}
	}
	return out, nil
}

// ResolveOutputs substitutes placeholders across a declared outputs map
// (BuildDef.outputs / BindDef.outputs), returning the resolved map.
func ResolveOutputs(outputs map[string]string, r *Resolver) (map[string]string, error) {
	resolved := make(map[string]string, len(outputs))
	for k, expr := range outputs {
		v, err := placeholder.Substitute(expr, r)
		if err != nil {
			return nil, err
		}
		resolved[k] = v
	}
	return resolved, nil
}
