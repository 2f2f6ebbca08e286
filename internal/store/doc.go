// Package store keeps linkcheck run history in SQLite.
//
// Two tables:
//   - runs: one row per suite run (id, suite, tool, timestamps, counts)
//   - verdicts: one row per case of a run, keyed by (run_id, seq)
//
// Run IDs are UUIDv7 so they sort by creation time. Listings order by
// started_at then id, newest first, so results are stable even when two
// runs share a timestamp.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The schema is versioned with PRAGMA user_version; Open applies pending
// migrations.
package store
