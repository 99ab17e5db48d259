// Package tasks makes the local library match a collection, with real-time progress reporting.
//
// # Core Operations
//
// [Pipeline] has two directions:
//
//  1. [Pipeline.Materialize] : ensure one target exists on disk
//     - Rewrites the target's manifest (m3u or album .nfo) and downloads its cover once
//     - Submits a fetch job for every song missing at its expected path, in collection order
//     - Tags each downloaded file exactly once (title, artists, album, cross reference, liked flag)
//     - Drains the worker pool, then removes files outside the extension allow-list
//
//  2. [Pipeline.Reconcile] : remove what the collection no longer wants
//     - Rescans each target directory with the local importers as a read-only probe
//     - Deletes songs absent from their target, keeping files at a wanted path
//     - Identifies untagged files that miss by name through the optional library.Library
//     - In the flattened layout, deletes copies outside a song's home
//     - Deletes whole album and playlist directories, or manifests, whose target is gone
//
// [Pipeline.MaterializeAll] runs the liked songs, each album and each playlist one after another.
//
// # Jobs
//
// A [Job] moves from queued to running to one of succeeded, match-rejected, tool-error or
// exhausted-retries. Jobs caught by a forced shutdown end cancelled. A job tries at most three times and
// only the second attempt carries credential escalation (browser cookies or a captured cURL session).
// The [Fetcher] exit code decides the next step; see [YtDlpFetcher].
//
// # Worker Pool
//
// [Pool] starts its workers on first submission, blocks submitters with a fixed backoff while its queue
// is full and is shut down after every target. Cancelling the context forces shutdown and surfaces
// shared.ErrCancelled.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Run Ledger
//
// The optional [JobRecorder] receives every run and job outcome (repositories.JobRecorderAdapter).
// Recording errors are logged and ignored.
package tasks
