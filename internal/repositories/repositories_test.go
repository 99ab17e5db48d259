package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
	"github.com/desertthunder/tunesync/internal/tasks"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func createRun(t *testing.T, repo *RunRepository, kind models.RunKind, target string) *models.Run {
	t.Helper()
	run := models.NewRun(kind, target)
	if err := repo.Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	return run
}

func TestRunRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))

		first := createRun(t, repo, models.RunMaterialize, "liked")
		second := createRun(t, repo, models.RunReconcile, "all")

		if first.ID() == "" {
			t.Error("run ID should be set after creation")
		}
		if first.Sequence() != 1 || second.Sequence() != 2 {
			t.Errorf("sequences = %d, %d, want 1, 2", first.Sequence(), second.Sequence())
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := createRun(t, repo, models.RunMaterialize, "album:Violator")

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}

		if got.Kind() != models.RunMaterialize {
			t.Errorf("expected kind %s, got %s", models.RunMaterialize, got.Kind())
		}
		if got.Target() != "album:Violator" {
			t.Errorf("expected target album:Violator, got %s", got.Target())
		}
		if got.Status() != models.RunRunning {
			t.Errorf("expected status %s, got %s", models.RunRunning, got.Status())
		}
		if got.FinishedAt() != nil {
			t.Errorf("running run should have no finish time, got %v", got.FinishedAt())
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := createRun(t, repo, models.RunMaterialize, "liked")

		run.SetCounts(5, 3, 2, 1)
		run.Finish(models.RunFailed, errors.New("boom"))
		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Status() != models.RunFailed {
			t.Errorf("expected status %s, got %s", models.RunFailed, got.Status())
		}
		if got.Submitted() != 5 || got.Succeeded() != 3 || got.Failed() != 2 || got.Removed() != 1 {
			t.Errorf("counts = %d/%d/%d/%d, want 5/3/2/1", got.Submitted(), got.Succeeded(), got.Failed(), got.Removed())
		}
		if got.Error() != "boom" {
			t.Errorf("expected error boom, got %q", got.Error())
		}
		if got.FinishedAt() == nil {
			t.Error("finished run should have a finish time")
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		createRun(t, repo, models.RunMaterialize, "liked")
		createRun(t, repo, models.RunReconcile, "all")
		last := createRun(t, repo, models.RunMaterialize, "playlist:Mix")

		runs, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		if runs[0].ID() != last.ID() {
			t.Errorf("expected newest run first, got sequence %d", runs[0].Sequence())
		}

		tests := []struct {
			name     string
			criteria map[string]any
			want     int
		}{
			{"by kind", map[string]any{"kind": string(models.RunMaterialize)}, 2},
			{"by status", map[string]any{"status": string(models.RunRunning)}, 3},
			{"by missing status", map[string]any{"status": string(models.RunCompleted)}, 0},
			{"with limit", map[string]any{"limit": 1}, 1},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				runs, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("failed to list runs: %v", err)
				}
				if len(runs) != tt.want {
					t.Errorf("expected %d runs, got %d", tt.want, len(runs))
				}
			})
		}
	})
}

func TestJobRepository(t *testing.T) {
	newRecord := func(runID, title string, state tasks.JobState) *models.JobRecord {
		return models.NewJobRecord(models.JobRecordParams{
			RunID:      runID,
			SongKey:    "spotify:" + title,
			Title:      title,
			Artist:     "Depeche Mode",
			Descriptor: "ytsearch1:" + title,
			State:      string(state),
			Attempts:   1,
		})
	}

	t.Run("Create and Get", func(t *testing.T) {
		db := setupTestDB(t)
		run := createRun(t, NewRunRepository(db), models.RunMaterialize, "liked")
		repo := NewJobRepository(db)

		job := newRecord(run.ID(), "Personal Jesus", tasks.JobSucceeded)
		if err := repo.Create(job); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}
		if job.ID() == "" {
			t.Fatal("job ID should be set after creation")
		}

		got, err := repo.Get(job.ID())
		if err != nil {
			t.Fatalf("failed to get job: %v", err)
		}
		if got.Title() != "Personal Jesus" || got.RunID() != run.ID() || got.State() != string(tasks.JobSucceeded) {
			t.Errorf("got %s/%s/%s", got.Title(), got.RunID(), got.State())
		}
		if got.UpdatedAt().IsZero() {
			t.Error("finish time should be stored")
		}
	})

	t.Run("ListByRun", func(t *testing.T) {
		db := setupTestDB(t)
		runs := NewRunRepository(db)
		a := createRun(t, runs, models.RunMaterialize, "liked")
		b := createRun(t, runs, models.RunMaterialize, "album:Violator")
		repo := NewJobRepository(db)

		for _, job := range []*models.JobRecord{
			newRecord(a.ID(), "One", tasks.JobSucceeded),
			newRecord(b.ID(), "Two", tasks.JobSucceeded),
			newRecord(a.ID(), "Three", tasks.JobToolError),
		} {
			if err := repo.Create(job); err != nil {
				t.Fatalf("failed to create job: %v", err)
			}
		}

		jobs, err := repo.ListByRun(a.ID())
		if err != nil {
			t.Fatalf("failed to list jobs: %v", err)
		}
		if len(jobs) != 2 {
			t.Fatalf("expected 2 jobs, got %d", len(jobs))
		}
		if jobs[0].Title() != "One" || jobs[1].Title() != "Three" {
			t.Errorf("unexpected order %s, %s", jobs[0].Title(), jobs[1].Title())
		}
	})

	t.Run("ListFailed", func(t *testing.T) {
		db := setupTestDB(t)
		run := createRun(t, NewRunRepository(db), models.RunMaterialize, "liked")
		repo := NewJobRepository(db)

		states := []tasks.JobState{
			tasks.JobSucceeded, tasks.JobMatchRejected, tasks.JobToolError, tasks.JobExhausted, tasks.JobCancelled,
		}
		for _, state := range states {
			if err := repo.Create(newRecord(run.ID(), string(state), state)); err != nil {
				t.Fatalf("failed to create job: %v", err)
			}
		}

		jobs, err := repo.ListFailed(0)
		if err != nil {
			t.Fatalf("failed to list failed jobs: %v", err)
		}
		if len(jobs) != 3 {
			t.Fatalf("expected 3 failed jobs, got %d", len(jobs))
		}
		for _, job := range jobs {
			if job.State() == string(tasks.JobSucceeded) || job.State() == string(tasks.JobCancelled) {
				t.Errorf("unexpected state %s in failed jobs", job.State())
			}
		}

		limited, err := repo.ListFailed(2)
		if err != nil {
			t.Fatalf("failed to list failed jobs: %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("expected 2 failed jobs, got %d", len(limited))
		}
	})
}

func TestJobRecorderAdapter(t *testing.T) {
	db := setupTestDB(t)
	rec := NewJobRecorderAdapter(db)
	ctx := context.Background()

	run := models.NewRun(models.RunMaterialize, "liked")
	if err := rec.StartRun(ctx, run); err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	job := models.NewJobRecord(models.JobRecordParams{RunID: run.ID(), Title: "Africa", State: string(tasks.JobSucceeded)})
	if err := rec.RecordJob(ctx, job); err != nil {
		t.Fatalf("RecordJob() error = %v", err)
	}
	run.SetCounts(1, 1, 0, 0)
	run.Finish(models.RunCompleted, nil)
	if err := rec.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	got, err := NewRunRepository(db).Get(run.ID())
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Status() != models.RunCompleted || got.Succeeded() != 1 {
		t.Errorf("got status %s with %d succeeded", got.Status(), got.Succeeded())
	}

	jobs, err := NewJobRepository(db).ListByRun(run.ID())
	if err != nil {
		t.Fatalf("failed to list jobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Title() != "Africa" {
		t.Errorf("expected the recorded job, got %d jobs", len(jobs))
	}

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := rec.StartRun(cctx, models.NewRun(models.RunReconcile, "all")); !errors.Is(err, context.Canceled) {
			t.Errorf("StartRun() error = %v, want context.Canceled", err)
		}
	})
}
