// Package ledger holds the primitives shared by the booking and monitoring
// ledgers: caller identity, the host environment handed to every operation,
// per-registry sequence counters and the failure-code taxonomy.
//
// Every mutator in the ledgers follows the same shape:
//
//  1. authorize the caller (Env.Caller) against ownership or role rules
//  2. validate every field constraint
//  3. read referenced records through the owning registry's Get
//  4. compute derived fields
//  5. commit
//
// Steps 1-4 never write. A rejected transition returns a *Error and leaves
// every registry unchanged.
//
// Codes are part of the external contract. Callers branch on them, so the
// integers in errors.go must never be renumbered.
package ledger
