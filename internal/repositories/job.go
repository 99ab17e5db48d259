package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
	"github.com/desertthunder/tunesync/internal/tasks"
)

// JobRepository stores the terminal outcome of fulfillment jobs. Records are written once.
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new JobRepository with the given database connection
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, run_id, song_key, title, artist, descriptor, state, attempts, escalated, path, error, finished_at`

// failedStates are the terminal job states that left no file behind.
var failedStates = []any{
	string(tasks.JobMatchRejected),
	string(tasks.JobToolError),
	string(tasks.JobExhausted),
}

// Create inserts a job record with a generated ID
func (r *JobRepository) Create(job *models.JobRecord) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()

	query := `INSERT INTO jobs (` + jobColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query,
		id,
		job.RunID(),
		job.SongKey(),
		job.Title(),
		job.Artist(),
		job.Descriptor(),
		job.State(),
		job.Attempts(),
		job.Escalated(),
		job.Path(),
		job.Error(),
		job.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	job.SetID(id)
	return nil
}

// Get retrieves a job record by ID
func (r *JobRepository) Get(id string) (*models.JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`

	job, err := scanJob(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: job %s", shared.ErrNotFound, id)
	}
	return job, err
}

// ListByRun retrieves the jobs of a run in the order they finished
func (r *JobRepository) ListByRun(runID string) ([]*models.JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE run_id = ? ORDER BY finished_at ASC, rowid ASC`
	return r.query(query, runID)
}

// ListFailed retrieves the most recent failed jobs across runs, newest first. A limit of 0 returns all.
func (r *JobRepository) ListFailed(limit int) ([]*models.JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE state IN (?, ?, ?) ORDER BY finished_at DESC, rowid DESC`
	args := append([]any{}, failedStates...)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.query(query, args...)
}

func (r *JobRepository) query(query string, args ...any) ([]*models.JobRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.JobRecord
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return jobs, nil
}

func scanJob(row rowScanner) (*models.JobRecord, error) {
	var (
		id         string
		finishedAt time.Time
		p          models.JobRecordParams
	)

	err := row.Scan(&id, &p.RunID, &p.SongKey, &p.Title, &p.Artist, &p.Descriptor, &p.State,
		&p.Attempts, &p.Escalated, &p.Path, &p.Error, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	job := models.NewJobRecord(p)
	job.SetID(id)
	job.SetFinishedAt(finishedAt)
	return job, nil
}
