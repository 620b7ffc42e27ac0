package holo

import (
	"encoding/json"
	"sort"

	"github.com/holoconf/holo/hash"
)

// InputsRefKind discriminates the shapes an InputsRef node can take.
type InputsRefKind int

const (
	InputsScalar InputsRefKind = iota
	InputsArray
	InputsMap
	InputsBuildRef
	InputsBindRef
)

// InputsRef is a tree of scalars, arrays, key-ordered maps, and typed
// references to other builds or binds by hash. A build's
// InputsRef must never contain a bind reference; ValidateNoBindRefs
// enforces that at manifest validation.
type InputsRef struct {
	Kind InputsRefKind

	Scalar any // string, float64, bool, or nil
	Array  []InputsRef
	Map    map[string]InputsRef
	Ref    hash.ObjectHash // set for InputsBuildRef / InputsBindRef
}

// wireRef mirrors the {"__ref": "build"|"bind", "hash": "..."} JSON shape.
type wireRef struct {
	Ref  string `json:"__ref"`
	Hash string `json:"hash"`
}

// MarshalJSON encodes the InputsRef back into its tagged-union wire shape.
func (r InputsRef) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case InputsScalar:
		return json.Marshal(r.Scalar)
	case InputsArray:
		return json.Marshal(r.Array)
	case InputsMap:
		return json.Marshal(r.Map)
	case InputsBuildRef:
		return json.Marshal(wireRef{Ref: "build", Hash: string(r.Ref)})
	case InputsBindRef:
		return json.Marshal(wireRef{Ref: "bind", Hash: string(r.Ref)})
	default:
		return json.Marshal(nil)
	}
}

// UnmarshalJSON decodes the wire shape into an InputsRef tree.
func (r *InputsRef) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err == nil {
		if refRaw, ok := probe["__ref"]; ok {
			var kind string
			if err := json.Unmarshal(refRaw, &kind); err != nil {
				return &InvalidManifestError{Reason: "inputs __ref must be a string"}
			}
			var wr wireRef
			if err := json.Unmarshal(data, &wr); err != nil {
				return err
			}
			var h hash.ObjectHash
			if err := json.Unmarshal([]byte(`"`+wr.Hash+`"`), &h); err != nil {
				return &InvalidManifestError{Reason: "inputs ref has invalid hash: " + err.Error()}
			}
			switch wr.Ref {
			case "build":
				*r = InputsRef{Kind: InputsBuildRef, Ref: h}
			case "bind":
				*r = InputsRef{Kind: InputsBindRef, Ref: h}
			default:
				return &InvalidManifestError{Reason: "inputs __ref must be \"build\" or \"bind\", got " + wr.Ref}
			}
			return nil
		}

		m := make(map[string]InputsRef, len(probe))
		for k, raw := range probe {
			var child InputsRef
			if err := json.Unmarshal(raw, &child); err != nil {
				return err
			}
			m[k] = child
		}
		*r = InputsRef{Kind: InputsMap, Map: m}
		return nil
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err == nil {
		items := make([]InputsRef, 0, len(arr))
		for _, raw := range arr {
			var child InputsRef
			if err := json.Unmarshal(raw, &child); err != nil {
				return err
			}
			items = append(items, child)
		}
		*r = InputsRef{Kind: InputsArray, Array: items}
		return nil
	}

	var scalar any
	if err := json.Unmarshal(data, &scalar); err != nil {
		return err
	}
	*r = InputsRef{Kind: InputsScalar, Scalar: scalar}
	return nil
}

// WalkRefs calls fn for every build/bind reference found anywhere in the
// InputsRef tree, in a deterministic (sorted-key) order.
func (r InputsRef) WalkRefs(fn func(kind InputsRefKind, h hash.ObjectHash)) {
	switch r.Kind {
	case InputsBuildRef, InputsBindRef:
		fn(r.Kind, r.Ref)
	case InputsArray:
		for _, child := range r.Array {
			child.WalkRefs(fn)
		}
	case InputsMap:
		keys := make([]string, 0, len(r.Map))
		for k := range r.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			r.Map[k].WalkRefs(fn)
		}
	}
}

// ValidateNoBindRefs returns an error if the tree contains any bind
// reference. Used to enforce that BuildDef.Inputs never names a bind.
func (r InputsRef) ValidateNoBindRefs() error {
	var found error
	r.WalkRefs(func(kind InputsRefKind, h hash.ObjectHash) {
		if kind == InputsBindRef && found == nil {
			found = &InvalidManifestError{Reason: "build inputs must not reference a bind (hash " + string(h) + ")"}
		}
	})
	return found
}
