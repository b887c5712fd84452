// Package ui implements an interactive terminal queue viewer using bubbletea's Elm architecture.
//
// The TUI works on one live session:
//  1. [QueueView] : Browse the queue with positions, durations and ETAs, and edit it in place
//  2. [InputView] : Enter a track URL to add or a playlist URL to import
//  3. [ConfirmView] : Confirm clearing the queue
//  4. [ImportView] : Monitor playlist import progress, esc cancels between items
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Queue mutations run as commands against the session's store, so the TUI goes through the same gate as every
// other writer. Import progress flows through a channel from the ingestor.
//
// Keyboard navigation uses vim-style bindings (j/k, J/K to move entries, d, s, f, n, l, a, i, c, q) with contextual
// help displayed via charmbracelet/bubbles/help.
package ui
