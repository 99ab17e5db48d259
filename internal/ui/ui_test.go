package ui

import (
	"context"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/tunesync/internal/collection"
	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
	"github.com/desertthunder/tunesync/internal/tasks"
)

type fakeSyncer struct {
	progress chan<- tasks.ProgressUpdate
	target   *tasks.Target
	all      bool
	result   *tasks.MaterializeResult
	err      error
}

func (f *fakeSyncer) Materialize(ctx context.Context, t tasks.Target, dir string) (*tasks.MaterializeResult, error) {
	f.target = &t
	if f.progress != nil {
		f.progress <- tasks.ProgressUpdate{Phase: tasks.PrepareTarget, Target: t.Name(), Total: 2, Message: "Materializing"}
	}
	return f.result, f.err
}

func (f *fakeSyncer) MaterializeAll(ctx context.Context) ([]*tasks.MaterializeResult, error) {
	f.all = true
	return []*tasks.MaterializeResult{f.result}, f.err
}

func fixtureTargets() []tasks.Target {
	coll := collection.New()
	coll.AddSong(models.NewSong("Loose", "Nelly Furtado"))

	album := models.NewAlbum("Violator", "Depeche Mode")
	album.AddSong(models.NewSong("Enjoy the Silence", "Depeche Mode"))
	album.AddSong(models.NewSong("Personal Jesus", "Depeche Mode"))
	coll.AddAlbum(album)

	return []tasks.Target{tasks.LikedTarget(coll), tasks.AlbumTarget(album)}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// run executes cmd and feeds any Msg it yields back into the model until the chain ends.
func run(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil && i < 10; i++ {
		msg, ok := cmd().(Msg)
		if !ok {
			return
		}
		_, cmd = m.Update(msg)
	}
}

func failedResult() *tasks.MaterializeResult {
	return &tasks.MaterializeResult{
		Target:  "Violator",
		Present: 1,
		Jobs: []*tasks.Job{
			{Song: models.NewSong("Personal Jesus", "Depeche Mode"), State: tasks.JobSucceeded},
			{Song: models.NewSong("Policy of Truth", "Depeche Mode"), State: tasks.JobToolError},
		},
	}
}

func TestModel(t *testing.T) {
	t.Run("sync one target", func(t *testing.T) {
		progress := make(chan tasks.ProgressUpdate, 10)
		syncer := &fakeSyncer{progress: progress, result: failedResult()}
		m := NewModel(context.Background(), fixtureTargets(), syncer, progress)
		m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})

		m.Update(keyMsg("j"))
		m.Update(keyMsg("enter"))
		if m.view != ConfirmView {
			t.Fatalf("view = %v, want ConfirmView", m.view)
		}
		if !strings.Contains(m.View(), "Violator") {
			t.Errorf("confirm view should name the target:\n%s", m.View())
		}

		m.Update(keyMsg("y"))
		if m.view != SyncView {
			t.Fatalf("view = %v, want SyncView", m.view)
		}
		run(t, m, m.waitForProgress())

		if m.view != ResultView {
			t.Fatalf("view = %v, want ResultView", m.view)
		}
		if syncer.target == nil || syncer.target.Name() != "Violator" {
			t.Errorf("materialized %v, want Violator", syncer.target)
		}

		out := m.View()
		for _, want := range []string{"Sync complete", "1 downloaded, 1 failed", "Policy of Truth (tool-error)"} {
			if !strings.Contains(out, want) {
				t.Errorf("result view missing %q:\n%s", want, out)
			}
		}
		if strings.Contains(out, "Personal Jesus (") {
			t.Errorf("result view should not list succeeded jobs:\n%s", out)
		}
	})

	t.Run("sync all", func(t *testing.T) {
		syncer := &fakeSyncer{result: failedResult()}
		m := NewModel(context.Background(), fixtureTargets(), syncer, nil)

		m.Update(keyMsg("a"))
		if !strings.Contains(m.View(), "the whole collection") {
			t.Errorf("confirm view should offer the whole collection:\n%s", m.View())
		}
		m.Update(keyMsg("y"))
		run(t, m, m.waitForProgress())

		if !syncer.all {
			t.Error("expected MaterializeAll to be called")
		}
		if m.view != ResultView {
			t.Errorf("view = %v, want ResultView", m.view)
		}
	})

	t.Run("declining returns to the list", func(t *testing.T) {
		m := NewModel(context.Background(), fixtureTargets(), &fakeSyncer{}, nil)
		m.Update(keyMsg("enter"))
		m.Update(keyMsg("n"))
		if m.view != TargetListView {
			t.Errorf("view = %v, want TargetListView", m.view)
		}
	})

	t.Run("cancelled sync", func(t *testing.T) {
		syncer := &fakeSyncer{err: fmt.Errorf("%w: context canceled", shared.ErrCancelled), result: failedResult()}
		m := NewModel(context.Background(), fixtureTargets(), syncer, nil)
		m.Update(keyMsg("a"))
		m.Update(keyMsg("y"))
		m.Update(keyMsg("ctrl+c"))
		run(t, m, m.waitForProgress())

		if !strings.Contains(m.View(), "Sync cancelled") {
			t.Errorf("result view should report cancellation:\n%s", m.View())
		}

		m.Update(keyMsg("r"))
		if m.view != TargetListView || m.results != nil {
			t.Errorf("restart should reset to the target list, got view %v", m.view)
		}
	})
}

func TestApply(t *testing.T) {
	m := NewModel(context.Background(), nil, &fakeSyncer{}, nil)

	updates := []tasks.ProgressUpdate{
		{Phase: tasks.PrepareTarget, Target: "Liked Songs", Total: 5, Message: "Materializing Liked Songs"},
		{Phase: tasks.SubmitJobs, Step: 1, Total: 3, Message: "queued one"},
		{Phase: tasks.SubmitJobs, Step: 2, Total: 3, Message: "queued two"},
		{Phase: tasks.FinishJob, Message: "✓ one"},
	}
	for _, u := range updates {
		m.apply(u)
	}

	if m.current != "Liked Songs" || m.queued != 2 || m.total != 3 || m.finished != 1 {
		t.Errorf("counters = %q %d/%d/%d", m.current, m.queued, m.total, m.finished)
	}
	if len(m.log) != 4 {
		t.Errorf("log has %d lines, want 4", len(m.log))
	}

	for i := range 20 {
		m.apply(tasks.ProgressUpdate{Phase: tasks.FinishJob, Message: fmt.Sprintf("line %d", i)})
	}
	if len(m.log) != logLines || m.log[logLines-1] != "line 19" {
		t.Errorf("log should keep the last %d lines, got %v", logLines, m.log)
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		done, total int
		filled      int
	}{
		{0, 0, 0},
		{0, 4, 0},
		{2, 4, barWidth / 2},
		{4, 4, barWidth},
		{9, 4, barWidth},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d of %d", tt.done, tt.total), func(t *testing.T) {
			got := strings.Count(bar(tt.done, tt.total), "█")
			if got != tt.filled {
				t.Errorf("bar(%d, %d) filled %d cells, want %d", tt.done, tt.total, got, tt.filled)
			}
		})
	}
}
