// Package hash implements holo's content-addressing scheme: canonical JSON
// serialization and the SHA-256-derived ObjectHash that names every build
// and bind definition. It is the single source of identity the rest of the
// system depends on, mirroring the role a container registry's digest
// package plays for blob content-addressing.
package hash

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/opencontainers/go-digest"
)

// objectHashLen is the number of leading hex characters of a SHA-256 digest
// kept as an ObjectHash.
const objectHashLen = 20

// fileBufSize is the streaming buffer size used when hashing files.
const fileBufSize = 8 * 1024

// ErrSerialize is returned by Canonicalize when a value cannot be made into
// stable canonical JSON (a non-finite float, or a structure too deep to be
// plausibly anything but cyclic).
var ErrSerialize = fmt.Errorf("hash: value cannot be canonicalized")

// maxCanonicalizeDepth bounds recursion when walking a decoded JSON value.
// Values produced by encoding/json cannot contain real cycles, but malformed
// or adversarial input (e.g. deeply nested arrays) is rejected rather than
// blowing the stack.
const maxCanonicalizeDepth = 10000

// Bytes returns the lowercase hex SHA-256 digest of data.
func Bytes(data []byte) string {
	return digest.FromBytes(data).Encoded()
}

// File streams path through SHA-256 in fileBufSize chunks and returns the
// lowercase hex digest.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, fileBufSize)
	r := bufio.NewReaderSize(f, fileBufSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", err
	}

	return digest.NewDigest(digest.SHA256, h).Encoded(), nil
}

// Canonicalize re-encodes v (typically the result of json.Unmarshal into
// map[string]any/[]any/scalars, or one of the manifest types, which is
// first round-tripped through encoding/json) with object keys sorted and no insignificant
// whitespace. This is the byte-stable serialization ObjectHash.Of hashes.
func Canonicalize(v any) ([]byte, error) {
	return canonicalizeValue(v, 0)
}

func canonicalizeValue(v any, depth int) ([]byte, error) {
	if depth > maxCanonicalizeDepth {
		return nil, ErrSerialize
	}

	switch t := v.(type) {
	case nil:
		return []byte("null"), nil
	case bool:
		if t {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case json.Number:
		return canonicalizeNumber(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, ErrSerialize
		}
		return canonicalizeNumber(json.Number(fmt.Sprintf("%v", t)))
	case string:
		return json.Marshal(t)
	case []any:
		return canonicalizeArray(t, depth)
	case map[string]any:
		return canonicalizeObject(t, depth)
	default:
		// Fall back through encoding/json so that typed manifest structs
		// (BuildDef, Action, etc.) can be canonicalized directly without the
		// caller needing to decode them into a generic tree first.
		decoded, err := roundtripToGeneric(t)
		if err != nil {
			return nil, err
		}
		return canonicalizeValue(decoded, depth+1)
	}
}

func roundtripToGeneric(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, ErrSerialize
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, ErrSerialize
	}
	return generic, nil
}

func canonicalizeNumber(n json.Number) ([]byte, error) {
	f, err := n.Float64()
	if err != nil {
		return nil, ErrSerialize
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, ErrSerialize
	}
	return []byte(n.String()), nil
}

func canonicalizeArray(arr []any, depth int) ([]byte, error) {
	out := []byte{'['}
	for i, elem := range arr {
		if i > 0 {
			out = append(out, ',')
		}
		encoded, err := canonicalizeValue(elem, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, encoded...)
	}
	return append(out, ']'), nil
}

func canonicalizeObject(obj map[string]any, depth int) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, ErrSerialize
		}
		out = append(out, keyJSON...)
		out = append(out, ':')

		encoded, err := canonicalizeValue(obj[k], depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, encoded...)
	}
	return append(out, '}'), nil
}
