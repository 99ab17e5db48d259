package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/tasks"
)

// JobRecorderAdapter implements tasks.JobRecorder using RunRepository and JobRepository.
//
// The pipeline logs and ignores recording errors, so a broken ledger never stops a sync.
type JobRecorderAdapter struct {
	runs *RunRepository
	jobs *JobRepository
}

var _ tasks.JobRecorder = (*JobRecorderAdapter)(nil)

// NewJobRecorderAdapter creates a recorder writing to db.
func NewJobRecorderAdapter(db *sql.DB) *JobRecorderAdapter {
	return &JobRecorderAdapter{runs: NewRunRepository(db), jobs: NewJobRepository(db)}
}

// StartRun stores a new running run and assigns its ID.
func (a *JobRecorderAdapter) StartRun(ctx context.Context, run *models.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.runs.Create(run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// RecordJob stores one job outcome.
func (a *JobRecorderAdapter) RecordJob(ctx context.Context, job *models.JobRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.jobs.Create(job); err != nil {
		return fmt.Errorf("failed to record job: %w", err)
	}
	return nil
}

// FinishRun stores the run's final status and counters.
func (a *JobRecorderAdapter) FinishRun(ctx context.Context, run *models.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.runs.Update(run); err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}
