// Package repositories implements SQLite persistence for session queues.
//
// [QueueRepository] stores one snapshot per session: the session's flags in the sessions table and
// its entries, position 0 first, in queue_entries. Saving replaces the previous snapshot inside a
// transaction.
//
// Sessions are numbered in the order they were first saved. [NextSessionSequence] claims the next
// number from the single-row sessions_sequence counter inside the saving transaction, so a failed
// save leaves no gap.
package repositories
