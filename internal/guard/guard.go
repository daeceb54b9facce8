// Package guard gates mutating operations on the editing flag fixed at
// startup.
package guard

import (
	"fmt"

	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

// Kind classifies an operation as reading or writing.
type Kind int

// Operation kinds.
const (
	Read Kind = iota
	Write
)

func (k Kind) String() string {
	if k == Write {
		return "write"
	}
	return "read"
}

// Guard holds the editing flag. The zero value denies every write.
type Guard struct {
	permitEditing bool
}

// New returns a guard for the given configuration.
func New(cfg *types.Config) Guard {
	return Guard{permitEditing: cfg != nil && cfg.PermitEditing}
}

// EditingPermitted reports the flag.
func (g Guard) EditingPermitted() bool {
	return g.permitEditing
}

// Authorize returns ErrPermissionDenied for a write operation unless editing
// is permitted. Reads always pass.
func (g Guard) Authorize(op string, kind Kind) error {
	if kind == Write && !g.permitEditing {
		return fmt.Errorf("%w: %s requires --permit-editing", types.ErrPermissionDenied, op)
	}
	return nil
}
