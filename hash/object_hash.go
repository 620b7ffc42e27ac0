package hash

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ObjectHash is the 20-character lowercase hex content-address of a build or
// bind definition: the first objectHashLen hex characters of the SHA-256
// digest of that definition's canonical JSON.
type ObjectHash string

// Of derives an ObjectHash from v's canonical JSON encoding.
func Of(v any) (ObjectHash, error) {
	canon, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	full := Bytes(canon)
	return ObjectHash(full[:objectHashLen]), nil
}

// String satisfies fmt.Stringer.
func (h ObjectHash) String() string {
	return string(h)
}

// HasPrefix reports whether h begins with prefix, used by the placeholder
// resolver's hash-prefix lookup ($${build:HASH_PREFIX:OUTKEY}).
func (h ObjectHash) HasPrefix(prefix string) bool {
	return strings.HasPrefix(string(h), prefix)
}

// Valid reports whether h looks like a well-formed ObjectHash: exactly
// objectHashLen lowercase hex characters.
func (h ObjectHash) Valid() bool {
	if len(h) != objectHashLen {
		return false
	}
	for _, c := range string(h) {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// MarshalJSON satisfies json.Marshaler.
func (h ObjectHash) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(h))
}

// UnmarshalJSON satisfies json.Unmarshaler and validates the shape of the
// incoming hash so malformed manifests are rejected at decode time.
func (h *ObjectHash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	candidate := ObjectHash(s)
	if !candidate.Valid() {
		return fmt.Errorf("hash: invalid object hash %q: want %d lowercase hex characters", s, objectHashLen)
	}
	*h = candidate
	return nil
}
