package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunesync/internal/formatter"
	"github.com/desertthunder/tunesync/internal/repositories"
)

const timeLayout = "2006-01-02 15:04"

// History lists recent runs, or with --failed the most recent jobs that ended without a file.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	limit := int(cmd.Int("limit"))
	if cmd.Bool("failed") {
		return r.failedJobs(repositories.NewJobRepository(db), limit)
	}

	criteria := map[string]any{"limit": limit}
	if kind := cmd.String("kind"); kind != "" {
		criteria["kind"] = kind
	}
	runs, err := repositories.NewRunRepository(db).List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		return r.writePlain("No runs recorded yet\n")
	}

	rows := make([][]string, len(runs))
	for i, run := range runs {
		took := "-"
		if fin := run.FinishedAt(); fin != nil {
			took = fin.Sub(run.CreatedAt()).Round(time.Second).String()
		}
		rows[i] = []string{
			fmt.Sprint(run.Sequence()),
			string(run.Kind()),
			run.Target(),
			string(run.Status()),
			fmt.Sprintf("%d/%d", run.Succeeded(), run.Submitted()),
			fmt.Sprint(run.Failed()),
			fmt.Sprint(run.Removed()),
			run.CreatedAt().Local().Format(timeLayout),
			took,
		}
	}
	headers := []string{"#", "Kind", "Target", "Status", "Downloaded", "Failed", "Removed", "Started", "Took"}
	return r.writePlain("%s\n", formatter.SummaryTable(headers, rows))
}

func (r *Runner) failedJobs(repo *repositories.JobRepository, limit int) error {
	jobs, err := repo.ListFailed(limit)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}
	if len(jobs) == 0 {
		return r.writePlain("No failed jobs\n")
	}

	rows := make([][]string, len(jobs))
	for i, job := range jobs {
		rows[i] = []string{
			job.Artist(),
			job.Title(),
			job.State(),
			fmt.Sprint(job.Attempts()),
			job.Error(),
			job.UpdatedAt().Local().Format(timeLayout),
		}
	}
	headers := []string{"Artist", "Title", "State", "Attempts", "Error", "Finished"}
	return r.writePlain("%s\n", formatter.SummaryTable(headers, rows))
}
