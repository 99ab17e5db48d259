// Package ui implements the interactive sync terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through a short workflow:
//  1. [TargetListView] : Browse liked songs, albums and playlists with their song counts
//  2. [ConfirmView] : Confirm materializing one target or the whole collection
//  3. [SyncView] : Monitor pipeline progress as jobs are queued and finish
//  4. [ResultView] : Per-target outcome and the songs that could not be fetched
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates arrive on the channel the pipeline was constructed with; the pipeline never blocks on it.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, a, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
// ctrl+c during a sync cancels it; the pipeline keeps files that already finished downloading.
package ui
