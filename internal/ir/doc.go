// Package ir defines the records the engine writes to the transition log and
// the value types their arguments and results are built from.
//
// ir imports nothing internal. Every other package may import it.
//
// Constraints:
//   - no floats anywhere; numbers are int64
//   - JSON tags use snake_case
//   - ordering uses the logical clock (seq), never wall-clock time
//   - identities are SHA-256 over RFC 8785 canonical JSON
package ir
