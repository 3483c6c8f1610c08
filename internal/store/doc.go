// Package store is the durable transition log behind the ledgers.
//
// The log is append-only:
//   - invocations: the requested action, caller, height and arguments
//   - completions: exactly one per invocation, the outcome and result
//
// Ordering uses seq (the engine's logical clock), never timestamps, so the
// ledgers can be rebuilt deterministically by replaying ReadAll.
//
// Args and results are stored as RFC 8785 canonical JSON. Content-addressed
// ids are computed in internal/ir.
//
// Two drivers are supported: SQLite (mattn/go-sqlite3, the default, in WAL
// mode) and Postgres through pgx's database/sql adapter. Queries are written
// with ? placeholders and rebound for Postgres.
package store
