// Package tasks runs the long-lived operations around a session queue with real-time progress reporting.
//
// # Playlist ingestion
//
// [Ingest] imports a playlist one item at a time through the queue's gated Enqueue:
//   - nil items are skipped without counting
//   - each item is transformed into a reference, optionally throttled by a [rate.Limiter]
//   - failed items are counted and skipped
//   - a [Cancellation] is polled after every item; already-added items are kept
//   - reaching the queue capacity stops the batch with [shared.ErrQueueCapacityExceeded]
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates. The [ProgressUpdate] struct contains
// phase, step counters, messages, and optional data for advanced UI rendering. Updates use select with
// default to prevent blocking.
//
// Ingestion progress is throttled: every item for batches of at most 10, every 10th success for
// batches of at most 50, every 50th success otherwise.
//
// # Persistence
//
// [Flusher] periodically drains the dirty-session set and saves snapshots through a worker pool.
// Persistence is best effort.
package tasks
