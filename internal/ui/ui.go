package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/tunesync/internal/shared"
	"github.com/desertthunder/tunesync/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	TargetListView ViewState = iota
	ConfirmView
	SyncView
	ResultView
)

const (
	logLines = 8
	barWidth = 30
)

// Syncer materializes targets; [tasks.Pipeline] implements it.
type Syncer interface {
	Materialize(ctx context.Context, t tasks.Target, dir string) (*tasks.MaterializeResult, error)
	MaterializeAll(ctx context.Context) ([]*tasks.MaterializeResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	cancel   context.CancelFunc
	view     ViewState
	syncer   Syncer
	progress <-chan tasks.ProgressUpdate
	done     chan syncOutcome
	width    int
	height   int

	targets    []tasks.Target
	targetList list.Model
	selected   *tasks.Target // nil means the whole collection

	current  string
	queued   int
	total    int
	finished int
	log      []string
	results  []*tasks.MaterializeResult
	err      error

	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model. progress must be the channel syncer reports to.
func NewModel(ctx context.Context, targets []tasks.Target, syncer Syncer, progress <-chan tasks.ProgressUpdate) *Model {
	items := make([]list.Item, len(targets))
	for i, t := range targets {
		items[i] = targetItem{target: t}
	}
	targetList := list.New(items, list.NewDefaultDelegate(), 0, 0)
	targetList.Title = "Collection"

	return &Model{
		ctx:        ctx,
		view:       TargetListView,
		syncer:     syncer,
		progress:   progress,
		targets:    targets,
		targetList: targetList,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init starts the spinner; targets are known up front.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.targetList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case TargetListView:
			return m.handleTargetListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case SyncView:
			return m.handleSyncKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.apply(msg.data.(tasks.ProgressUpdate))
			return m, m.waitForProgress()
		case MsgSyncComplete:
			outcome := msg.data.(syncOutcome)
			m.results = outcome.results
			m.err = outcome.err
			m.view = ResultView
			if m.cancel != nil {
				m.cancel()
				m.cancel = nil
			}
			return m, nil
		}
	}

	if m.view == TargetListView {
		var cmd tea.Cmd
		m.targetList, cmd = m.targetList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case TargetListView:
		return m.renderTargetList()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleTargetListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.targetList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.targetList, cmd = m.targetList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.targetList.SelectedItem().(targetItem); ok {
			t := item.target
			m.selected = &t
			m.view = ConfirmView
		}
		return m, nil
	case key.Matches(msg, m.keys.all):
		m.selected = nil
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.targetList, cmd = m.targetList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = SyncView
		return m, m.startSync()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.view = TargetListView
		return m, nil
	}
	return m, nil
}

// handleSyncKeys only allows cancellation; the sync reports back through MsgSyncComplete.
func (m *Model) handleSyncKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.cancel) && m.cancel != nil {
		m.cancel()
		m.logLine(styles.warn.Render("cancelling..."))
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.reset()
		m.view = TargetListView
		return m, nil
	}
	return m, nil
}

func (m *Model) reset() {
	m.selected = nil
	m.current = ""
	m.queued, m.total, m.finished = 0, 0, 0
	m.log = nil
	m.results = nil
	m.err = nil
}

// apply folds one pipeline update into the counters shown by the sync view.
func (m *Model) apply(u tasks.ProgressUpdate) {
	switch u.Phase {
	case tasks.PrepareTarget:
		m.current = u.Target
		m.queued, m.finished = 0, 0
		m.total = u.Total
	case tasks.SubmitJobs:
		m.queued = u.Step
		m.total = u.Total
	case tasks.FinishJob:
		m.finished++
	}
	if u.Message != "" {
		m.logLine(u.Message)
	}
}

func (m *Model) logLine(line string) {
	m.log = append(m.log, line)
	if len(m.log) > logLines {
		m.log = m.log[len(m.log)-logLines:]
	}
}

func (m *Model) startSync() tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.done = make(chan syncOutcome, 1)
	m.drain()

	selected := m.selected
	go func() {
		var outcome syncOutcome
		if selected == nil {
			outcome.results, outcome.err = m.syncer.MaterializeAll(ctx)
		} else {
			res, err := m.syncer.Materialize(ctx, *selected, "")
			if res != nil {
				outcome.results = []*tasks.MaterializeResult{res}
			}
			outcome.err = err
		}
		m.done <- outcome
	}()

	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

// drain discards updates left over from a previous sync.
func (m *Model) drain() {
	for {
		select {
		case <-m.progress:
		default:
			return
		}
	}
}

// waitForProgress yields the next update, or the outcome once the sync returns.
func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progress, m.done
	return func() tea.Msg {
		select {
		case update := <-progress:
			return progressUpdateMsg(update)
		case outcome := <-done:
			return syncCompleteMsg(outcome.results, outcome.err)
		}
	}
}

func (m *Model) renderTargetList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.all, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.targetList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	name, songs := "the whole collection", 0
	if m.selected != nil {
		name, songs = m.selected.Name(), len(m.selected.Songs())
	} else {
		for _, t := range m.targets {
			songs += len(t.Songs())
		}
	}

	title := styles.title.Render(fmt.Sprintf("Sync %s?", name))
	info := fmt.Sprintf("\nTargets: %d\nSongs: %d\n", m.targetCount(), songs)
	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	return fmt.Sprintf("%s\n%s\n%s", title, info, m.help.ShortHelpView(helpKeys))
}

func (m *Model) targetCount() int {
	if m.selected != nil {
		return 1
	}
	return len(m.targets)
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Syncing")

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", title)
	if m.current != "" {
		fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), m.current)
		fmt.Fprintf(&b, "%s %d/%d\n\n", bar(m.finished, m.total), m.finished, m.total)
	}
	for _, line := range m.log {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	fmt.Fprintf(&b, "\n%s", m.help.ShortHelpView([]key.Binding{m.keys.cancel}))
	return b.String()
}

func bar(done, total int) string {
	filled := 0
	if total > 0 {
		filled = min(barWidth, done*barWidth/total)
	}
	return styles.bar.Render(strings.Repeat("█", filled)) + styles.track.Render(strings.Repeat("░", barWidth-filled))
}

func (m *Model) renderResult() string {
	var b strings.Builder

	switch {
	case errors.Is(m.err, shared.ErrCancelled):
		b.WriteString(styles.warn.Render("Sync cancelled"))
	case m.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("Sync failed: %v", m.err)))
	default:
		b.WriteString(styles.ok.Render("✓ Sync complete"))
	}
	b.WriteString("\n")

	for _, res := range m.results {
		fmt.Fprintf(&b, "\n%s: %d present, %d downloaded, %d failed",
			res.Target, res.Present, res.Count(tasks.JobSucceeded), res.Failed())
		for _, job := range res.Jobs {
			if job.State == tasks.JobSucceeded || job.State == tasks.JobCancelled {
				continue
			}
			fmt.Fprintf(&b, "\n  %s", styles.warn.Render(fmt.Sprintf("• %s (%s)", job.Song.Credit(), job.State)))
		}
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	fmt.Fprintf(&b, "\n\n%s", m.help.ShortHelpView(helpKeys))
	return b.String()
}
