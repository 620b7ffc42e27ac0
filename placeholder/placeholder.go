// Package placeholder implements the $${...} substitution mini-language
// used inside action fields: $${out}, $${action:N},
// $${build:HASH_PREFIX:OUTKEY} and $${bind:HASH_PREFIX:OUTKEY}.
package placeholder

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	delimOpen  = "$${"
	delimClose = "}"
)

// Kind discriminates which of the four placeholder forms matched.
type Kind int

const (
	KindOut Kind = iota
	KindAction
	KindBuild
	KindBind
)

// Ref is one parsed $${...} reference.
type Ref struct {
	Kind   Kind
	Index  int    // KindAction
	Prefix string // KindBuild, KindBind: 12-hex hash prefix
	OutKey string // KindBuild, KindBind
}

// Resolver supplies the resolved value for a parsed Ref. Implementations
// hold the runtime state for one definition's execution: its own output
// directory, its own prior action results, and read-only access to
// predecessor build/bind outputs.
type Resolver interface {
	Out() (string, error)
	Action(index int) (string, error)
	Build(hashPrefix, outKey string) (string, error)
	Bind(hashPrefix, outKey string) (string, error)
}

// UnresolvedError reports a placeholder that a Resolver could not satisfy,
// distinguishing which form of reference could not be resolved.
type UnresolvedError struct {
	Form string // "out", "action", "build", or "bind"
	Raw  string // the full "$${...}" text
	Err  error
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved placeholder %s (%s): %v", e.Raw, e.Form, e.Err)
}

func (e *UnresolvedError) Unwrap() error {
	return e.Err
}

// SyntaxError reports a "$${...}" span that does not match any known form.
type SyntaxError struct {
	Raw string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("malformed placeholder: %s", e.Raw)
}

// Substitute performs a single left-to-right pass over s, replacing every
// $${...} span with its resolved value. Nesting is not supported: the
// first "}" after an opening "$${" always closes the span. An unresolved
// or malformed reference aborts the whole substitution.
func Substitute(s string, r Resolver) (string, error) {
	var b strings.Builder
	rest := s
	for {
		i := strings.Index(rest, delimOpen)
		if i < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		b.WriteString(rest[:i])
		afterOpen := rest[i+len(delimOpen):]
		j := strings.Index(afterOpen, delimClose)
		if j < 0 {
			return "", &SyntaxError{Raw: rest[i:]}
		}
		body := afterOpen[:j]
		raw := delimOpen + body + delimClose

		ref, err := Parse(body)
		if err != nil {
			return "", fmt.Errorf("%w: %v", &SyntaxError{Raw: raw}, err)
		}

		val, err := resolve(ref, r)
		if err != nil {
			return "", &UnresolvedError{Form: formName(ref.Kind), Raw: raw, Err: err}
		}
		b.WriteString(val)

		rest = afterOpen[j+len(delimClose):]
	}
}

// Parse decodes the text between "$${" and "}" into a Ref.
func Parse(body string) (Ref, error) {
	if body == "out" {
		return Ref{Kind: KindOut}, nil
	}

	parts := strings.SplitN(body, ":", 3)
	switch parts[0] {
	case "action":
		if len(parts) != 2 {
			return Ref{}, fmt.Errorf("action placeholder requires exactly one index")
		}
		idx, err := strconv.Atoi(parts[1])
		if err != nil || idx < 0 {
			return Ref{}, fmt.Errorf("invalid action index %q", parts[1])
		}
		return Ref{Kind: KindAction, Index: idx}, nil
	case "build":
		if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
			return Ref{}, fmt.Errorf("build placeholder requires HASH_PREFIX and OUTKEY")
		}
		return Ref{Kind: KindBuild, Prefix: parts[1], OutKey: parts[2]}, nil
	case "bind":
		if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
			return Ref{}, fmt.Errorf("bind placeholder requires HASH_PREFIX and OUTKEY")
		}
		return Ref{Kind: KindBind, Prefix: parts[1], OutKey: parts[2]}, nil
	default:
		return Ref{}, fmt.Errorf("unrecognized placeholder form %q", parts[0])
	}
}

func resolve(ref Ref, r Resolver) (string, error) {
	switch ref.Kind {
	case KindOut:
		return r.Out()
	case KindAction:
		return r.Action(ref.Index)
	case KindBuild:
		return r.Build(ref.Prefix, ref.OutKey)
	case KindBind:
		return r.Bind(ref.Prefix, ref.OutKey)
	default:
		return "", fmt.Errorf("unknown placeholder kind %d", ref.Kind)
	}
}

// FindRefs scans s and returns every placeholder reference it contains,
// without resolving them. The scheduler uses this to discover DAG edges
// from $${build:...} and $${bind:...} references embedded in action
// fields, before any execution happens.
func FindRefs(s string) ([]Ref, error) {
	var refs []Ref
	rest := s
	for {
		i := strings.Index(rest, delimOpen)
		if i < 0 {
			return refs, nil
		}
		afterOpen := rest[i+len(delimOpen):]
		j := strings.Index(afterOpen, delimClose)
		if j < 0 {
			return nil, &SyntaxError{Raw: rest[i:]}
		}
		body := afterOpen[:j]
		ref, err := Parse(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", &SyntaxError{Raw: delimOpen + body + delimClose}, err)
		}
		refs = append(refs, ref)
		rest = afterOpen[j+len(delimClose):]
	}
}

func formName(k Kind) string {
	switch k {
	case KindOut:
		return "out"
	case KindAction:
		return "action"
	case KindBuild:
		return "build"
	case KindBind:
		return "bind"
	default:
		return "unknown"
	}
}
