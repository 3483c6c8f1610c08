package ledger

import "fmt"

// Identity is an opaque, immutable caller identity assigned by the host.
type Identity string

// ID is a sequential record identifier. Zero is never assigned.
type ID uint64

// Env is the host-provided context of a single invocation.
//
// Height is the block height (logical time) at which the call executes.
// Dates stored in records (scheduled date, completion date, application
// date, measurement date) are expressed in the same unit.
type Env struct {
	Caller Identity
	Height int64
}

// NewEnv builds an Env for the given caller at the given height.
func NewEnv(caller Identity, height int64) Env {
	return Env{Caller: caller, Height: height}
}

// Validate rejects environments the host should never produce.
func (e Env) Validate() error {
	if e.Caller == "" {
		return Errorf(CodeUnauthorized, "caller identity is required")
	}
	if e.Height < 0 {
		return Errorf(CodeInvalidInput, "height must be non-negative, got %d", e.Height)
	}
	return nil
}

func (e Env) String() string {
	return fmt.Sprintf("%s@%d", e.Caller, e.Height)
}
