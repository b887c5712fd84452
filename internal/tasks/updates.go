package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI, HTTP or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	IngestStart Phase = iota
	IngestItems
	IngestDone
	FlushSessions
)

func (p Phase) String() string {
	switch p {
	case IngestStart:
		return "ingest_start"
	case IngestItems:
		return "ingest_items"
	case IngestDone:
		return "ingest_done"
	case FlushSessions:
		return "flush_sessions"
	default:
		return ""
	}
}

func ingestStartUpdate(title string, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   IngestStart,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Processing playlist %q (%d tracks)...", title, total),
	}
}

func ingestItemsUpdate(title string, added, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   IngestItems,
		Step:    added,
		Total:   total,
		Message: fmt.Sprintf("Processing playlist %q, %d of %d tracks added", title, added, total),
	}
}

func ingestDoneUpdate(title string, result IngestResult, total int) ProgressUpdate {
	msg := fmt.Sprintf("Added %d of %d tracks from %q", result.Added, total, title)
	if result.Cancelled {
		msg += " (cancelled)"
	}
	return ProgressUpdate{
		Phase:   IngestDone,
		Step:    result.Added,
		Total:   total,
		Message: msg,
		Data:    result,
	}
}

func flushUpdate(step, total int, sessionID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FlushSessions,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Saved session %s", sessionID),
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// shouldReport implements the progress throttle: every item for batches of at most 10, every 10th
// success for batches of at most 50, and every 50th success otherwise.
func shouldReport(total, added int, ok bool) bool {
	switch {
	case total <= 10:
		return true
	case !ok || added == 0:
		return false
	case total <= 50:
		return added%10 == 0
	default:
		return added%50 == 0
	}
}
