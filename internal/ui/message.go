package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/tunesync/internal/tasks"
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
	MsgProgressUpdate MsgKind = iota
	MsgSyncComplete
)

// syncOutcome is what a finished sync reports back.
type syncOutcome struct {
	results []*tasks.MaterializeResult
	err     error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(results []*tasks.MaterializeResult, err error) Msg {
	return Msg{kind: MsgSyncComplete, data: syncOutcome{results: results, err: err}}
}
