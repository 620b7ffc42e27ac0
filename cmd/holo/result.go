package main

import (
	"github.com/holoconf/holo"
	"github.com/holoconf/holo/hash"
)

// dagResultJSON mirrors holo.DagResult with error values rendered as
// strings, since *FailedBuild.Err/*FailedBind.Err are plain error
// interfaces that json.Marshal has no useful default encoding for.
type dagResultJSON struct {
	Realized     map[hash.ObjectHash]holo.BuildResult     `json:"realized"`
	BuildFailed  *failedJSON                              `json:"build_failed,omitempty"`
	BuildSkipped map[hash.ObjectHash]holo.FailedDependency `json:"build_skipped"`

	Applied     map[hash.ObjectHash]holo.BindResult       `json:"applied"`
	BindFailed  *failedJSON                               `json:"bind_failed,omitempty"`
	BindSkipped map[hash.ObjectHash]holo.FailedDependency `json:"bind_skipped"`

	Success bool `json:"success"`
}

type failedJSON struct {
	Hash hash.ObjectHash `json:"hash"`
	Err  string          `json:"error"`
}

func toDagResultJSON(r *holo.DagResult) dagResultJSON {
	out := dagResultJSON{
		Realized:     r.Realized,
		BuildSkipped: r.BuildSkipped,
		Applied:      r.Applied,
		BindSkipped:  r.BindSkipped,
		Success:      r.IsSuccess(),
	}
	if r.BuildFailed != nil {
		out.BuildFailed = &failedJSON{Hash: r.BuildFailed.Hash, Err: r.BuildFailed.Err.Error()}
	}
	if r.BindFailed != nil {
		out.BindFailed = &failedJSON{Hash: r.BindFailed.Hash, Err: r.BindFailed.Err.Error()}
	}
	return out
}
