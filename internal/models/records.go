package models

import (
	"fmt"
	"time"
)

// RunKind distinguishes the two directions of a sync.
type RunKind string

const (
	RunMaterialize RunKind = "materialize"
	RunReconcile   RunKind = "reconcile"
)

// RunStatus is the lifecycle of a [Run].
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Run records one materialize or reconcile invocation over a single target.
type Run struct {
	id         string
	sequence   int
	kind       RunKind
	target     string
	status     RunStatus
	submitted  int
	succeeded  int
	failed     int
	removed    int
	errMsg     string
	startedAt  time.Time
	finishedAt *time.Time
}

// NewRun creates a running [Run] for target.
func NewRun(kind RunKind, target string) *Run {
	return &Run{kind: kind, target: target, status: RunRunning, startedAt: time.Now()}
}

func (r *Run) ID() string             { return r.id }
func (r *Run) SetID(id string)        { r.id = id }
func (r *Run) Sequence() int          { return r.sequence }
func (r *Run) SetSequence(n int)      { r.sequence = n }
func (r *Run) Kind() RunKind          { return r.kind }
func (r *Run) Target() string         { return r.target }
func (r *Run) Status() RunStatus      { return r.status }
func (r *Run) Submitted() int         { return r.submitted }
func (r *Run) Succeeded() int         { return r.succeeded }
func (r *Run) Failed() int            { return r.failed }
func (r *Run) Removed() int           { return r.removed }
func (r *Run) Error() string          { return r.errMsg }
func (r *Run) CreatedAt() time.Time   { return r.startedAt }
func (r *Run) FinishedAt() *time.Time { return r.finishedAt }

// UpdatedAt is the finish time, or the start time while running.
func (r *Run) UpdatedAt() time.Time {
	if r.finishedAt != nil {
		return *r.finishedAt
	}
	return r.startedAt
}

// SetStartedAt overrides the start time, used when loading from storage.
func (r *Run) SetStartedAt(t time.Time) { r.startedAt = t }

// SetCounts replaces the job counters.
func (r *Run) SetCounts(submitted, succeeded, failed, removed int) {
	r.submitted, r.succeeded, r.failed, r.removed = submitted, succeeded, failed, removed
}

// Finish moves the run to a terminal status. A non-nil err is kept as the run's error message.
func (r *Run) Finish(status RunStatus, err error) {
	now := time.Now()
	r.status = status
	r.finishedAt = &now
	if err != nil {
		r.errMsg = err.Error()
	}
}

// Restore sets the stored terminal fields without touching the clock.
func (r *Run) Restore(status RunStatus, errMsg string, finishedAt *time.Time) {
	r.status = status
	r.errMsg = errMsg
	r.finishedAt = finishedAt
}

// Validate checks required fields.
func (r *Run) Validate() error {
	switch {
	case r.kind != RunMaterialize && r.kind != RunReconcile:
		return fmt.Errorf("invalid run kind %q", r.kind)
	case r.target == "":
		return fmt.Errorf("run target is required")
	}
	return nil
}

// JobRecord is the terminal outcome of one fulfillment job.
type JobRecord struct {
	id         string
	runID      string
	songKey    string
	title      string
	artist     string
	descriptor string
	state      string
	attempts   int
	escalated  bool
	path       string
	errMsg     string
	finishedAt time.Time
}

// JobRecordParams carries the fields of a new [JobRecord].
type JobRecordParams struct {
	RunID      string
	SongKey    string
	Title      string
	Artist     string
	Descriptor string
	State      string
	Attempts   int
	Escalated  bool
	Path       string
	Error      string
}

// NewJobRecord creates a [JobRecord] finished now.
func NewJobRecord(p JobRecordParams) *JobRecord {
	return &JobRecord{
		runID:      p.RunID,
		songKey:    p.SongKey,
		title:      p.Title,
		artist:     p.Artist,
		descriptor: p.Descriptor,
		state:      p.State,
		attempts:   p.Attempts,
		escalated:  p.Escalated,
		path:       p.Path,
		errMsg:     p.Error,
		finishedAt: time.Now(),
	}
}

func (j *JobRecord) ID() string                { return j.id }
func (j *JobRecord) SetID(id string)           { j.id = id }
func (j *JobRecord) RunID() string             { return j.runID }
func (j *JobRecord) SongKey() string           { return j.songKey }
func (j *JobRecord) Title() string             { return j.title }
func (j *JobRecord) Artist() string            { return j.artist }
func (j *JobRecord) Descriptor() string        { return j.descriptor }
func (j *JobRecord) State() string             { return j.state }
func (j *JobRecord) Attempts() int             { return j.attempts }
func (j *JobRecord) Escalated() bool           { return j.escalated }
func (j *JobRecord) Path() string              { return j.path }
func (j *JobRecord) Error() string             { return j.errMsg }
func (j *JobRecord) CreatedAt() time.Time      { return j.finishedAt }
func (j *JobRecord) UpdatedAt() time.Time      { return j.finishedAt }
func (j *JobRecord) SetFinishedAt(t time.Time) { j.finishedAt = t }

// Validate checks required fields.
func (j *JobRecord) Validate() error {
	switch {
	case j.runID == "":
		return fmt.Errorf("job run id is required")
	case j.title == "":
		return fmt.Errorf("job title is required")
	case j.state == "":
		return fmt.Errorf("job state is required")
	}
	return nil
}
