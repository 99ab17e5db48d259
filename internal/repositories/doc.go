// Package repositories implements SQLite persistence for the run ledger.
//
// Every materialize or reconcile invocation is a run; every fulfillment job that reached a terminal
// state is a job record belonging to a run.
//
// Key Implementations:
//   - [RunRepository] : Run history with status and counters, newest first
//   - [JobRepository] : Write-once job outcomes with per-run and failure queries
//   - [JobRecorderAdapter] : tasks.JobRecorder backed by both repositories
//
// Sequence numbers provide stable, human-readable ordering (run #42) independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
