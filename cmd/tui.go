package main

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunesync/internal/shared"
	"github.com/desertthunder/tunesync/internal/tasks"
	"github.com/desertthunder/tunesync/internal/ui"
)

// TUI launches the interactive target picker and sync screen.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	logPath := filepath.Join(r.config.Paths.Data, "tui.log")
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	coll, err := r.loadCollection()
	if err != nil {
		return err
	}

	db, err := r.openLedger()
	if err != nil {
		r.logger.Warn("run ledger unavailable, history will not be recorded", "error", err)
		db = nil
	} else {
		defer db.Close()
	}

	lib := r.optionalLibrary()
	defer r.flushLibrary(lib)

	progress := make(chan tasks.ProgressUpdate, 64)
	pipeline, err := r.newPipeline(coll, db, lib, progress)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, allTargets(coll), pipeline, progress)
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
