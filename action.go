package holo

import (
	"encoding/json"
	"fmt"

	"github.com/holoconf/holo/placeholder"
)

// ActionType discriminates the Action tagged union on the wire ("type").
type ActionType string

const (
	ActionFetchURL  ActionType = "fetch_url"
	ActionExec      ActionType = "exec"
	ActionWriteFile ActionType = "write_file"
)

// Action is one primitive operation a build or bind recipe performs. It is
// a tagged union over FetchURL/Exec/WriteFile; exactly one of the typed
// accessors is meaningful for a given Type.
//
// Actions decode from and encode to the following JSON schema:
//
//	{"type": "fetch_url", "url": ..., "sha256": ...}
//	{"type": "exec", "bin": ..., "args"?: [...], "env"?: {...}, "cwd"?: ...}
//	{"type": "write_file", "path": ..., "contents": ...}
type Action struct {
	Type ActionType `json:"type"`

	// FetchUrl fields.
	URL    string `json:"url,omitempty"`
	SHA256 string `json:"sha256,omitempty"`

	// Exec fields.
	Bin  string            `json:"bin,omitempty"`
	Args []string          `json:"args,omitempty"`
	Env  map[string]string `json:"env,omitempty"`
	Cwd  string            `json:"cwd,omitempty"`

	// WriteFile fields.
	Path     string `json:"path,omitempty"`
	Contents string `json:"contents,omitempty"`
}

// Validate checks that an Action carries exactly the fields its Type
// requires, rejecting malformed manifests at decode time rather than at
// execution time (Design Notes §9).
func (a Action) Validate() error {
	switch a.Type {
	case ActionFetchURL:
		if a.URL == "" {
			return &InvalidManifestError{Reason: "fetch_url action missing url"}
		}
		if a.SHA256 == "" {
			return &InvalidManifestError{Reason: "fetch_url action missing sha256"}
		}
	case ActionExec:
		if a.Bin == "" {
			return &InvalidManifestError{Reason: "exec action missing bin"}
		}
	case ActionWriteFile:
		if a.Path == "" {
			return &InvalidManifestError{Reason: "write_file action missing path"}
		}
	default:
		return &InvalidManifestError{Reason: fmt.Sprintf("unknown action type %q", a.Type)}
	}
	return nil
}

// Fields returns the action's own string fields in the order the
// placeholder grammar should scan them, used for DAG edge discovery
// (scheduler, §4.5). The runner substitutes the same set of fields.
func (a Action) Fields() []string {
	switch a.Type {
	case ActionFetchURL:
		return []string{a.URL, a.SHA256}
	case ActionExec:
		fields := append([]string{a.Bin}, a.Args...)
		for _, v := range a.Env {
			fields = append(fields, v)
		}
		fields = append(fields, a.Cwd)
		return fields
	case ActionWriteFile:
		return []string{a.Path, a.Contents}
	default:
		return nil
	}
}

// PlaceholderRefs collects every $${build:...} and $${bind:...} reference
// embedded in the action's fields, for scheduler DAG edge discovery.
func (a Action) PlaceholderRefs() ([]placeholder.Ref, error) {
	var all []placeholder.Ref
	for _, f := range a.Fields() {
		refs, err := placeholder.FindRefs(f)
		if err != nil {
			return nil, err
		}
		all = append(all, refs...)
	}
	return all, nil
}

// UnmarshalJSON validates the decoded action's shape against its type tag.
func (a *Action) UnmarshalJSON(data []byte) error {
	type alias Action
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	candidate := Action(decoded)
	if err := candidate.Validate(); err != nil {
		return err
	}
	*a = candidate
	return nil
}
