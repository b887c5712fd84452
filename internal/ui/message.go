package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytq/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgActionDone MsgKind = iota
	MsgProgressUpdate
	MsgImportComplete
)

type actionResult struct {
	status string
	err    error
}

type importResult struct {
	result tasks.IngestResult
	err    error
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(status string, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionResult{status, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// importCompleteMsg is the constructor for [MsgImportComplete]
func importCompleteMsg(result tasks.IngestResult, err error) Msg {
	return Msg{kind: MsgImportComplete, data: importResult{result, err}}
}
