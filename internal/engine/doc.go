// Package engine is the single writer of the mulch ledgers.
//
// It turns requests into logged transitions:
//
//	Request -> Invocation (content-addressed, seq from Clock)
//	        -> handler on a cloned State
//	        -> Completion (Success, or the failure name with {code, message})
//	        -> store.WriteTransition (one transaction)
//	        -> swap the clone in if the transition succeeded
//	        -> follow-on rules, same flow token
//
// Read-only actions (Provider.get, Notification.needsReplacement, ...) are
// evaluated against committed state and never logged.
//
// Follow-on rules fire breadth-first in declaration order. A CycleDetector
// stops a rule that would fire the same arguments twice in one flow, and a
// per-flow QuotaEnforcer bounds long chains; together they guarantee Invoke
// terminates. AnalyzeRuleCycles reports rule sets that can loop before any
// of them runs.
//
// Seq numbers come from the logical Clock, never from wall time. Replay
// re-applies the log to the genesis state and compares every completion
// with the recorded one; Rebuild adopts the replayed state so a new process
// can continue an existing log.
package engine
