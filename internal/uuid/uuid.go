// Package uuid generates the random identifiers used as snapshot ids and
// as per-realization staging directory nonces.
package uuid

import (
	"github.com/gofrs/uuid"
)

// NewString returns a new random (V4) UUID string.
func NewString() string {
	return uuid.Must(uuid.NewV4()).String()
}
