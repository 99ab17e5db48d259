package tasks

import (
	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/tags"
)

// JobState is the lifecycle of a fulfillment job.
type JobState string

const (
	JobQueued        JobState = "queued"
	JobRunning       JobState = "running"
	JobSucceeded     JobState = "succeeded"
	JobMatchRejected JobState = "match-rejected"
	JobToolError     JobState = "tool-error"
	JobExhausted     JobState = "exhausted-retries"
	JobCancelled     JobState = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s JobState) Terminal() bool {
	switch s {
	case JobSucceeded, JobMatchRejected, JobToolError, JobExhausted, JobCancelled:
		return true
	}
	return false
}

// Job downloads one song of a target. Its fields are owned by the worker running it until the pool drains.
type Job struct {
	Song       *models.Song
	Target     string
	Request    FetchRequest
	Tags       tags.Fields
	State      JobState
	Attempts   int
	Escalated  bool
	ExitCode   int
	Output     string
	Err        error
	TagWritten bool
}

// Path is the file the job produces.
func (j *Job) Path() string {
	return j.Request.Path()
}

// Record converts the job into a ledger entry for runID.
func (j *Job) Record(runID string) *models.JobRecord {
	p := models.JobRecordParams{
		RunID:      runID,
		SongKey:    j.Song.Key(),
		Title:      j.Song.Name,
		Artist:     j.Song.MainArtist(),
		Descriptor: j.Request.Descriptor,
		State:      string(j.State),
		Attempts:   j.Attempts,
		Escalated:  j.Escalated,
	}
	if j.State == JobSucceeded {
		p.Path = j.Path()
	}
	if j.Err != nil {
		p.Error = j.Err.Error()
	}
	return models.NewJobRecord(p)
}

// songTags derives the tags written after a download. position is the 1-based album track number, or 0.
func songTags(song *models.Song, album string, liked bool, position int) tags.Fields {
	if song.AlbumName != "" {
		album = song.AlbumName
	}
	return tags.Fields{
		Title:       song.Name,
		Artists:     song.ArtistNames(),
		Album:       album,
		CrossRef:    song.CrossRef(),
		Liked:       liked,
		TrackNumber: position,
		Duration:    song.Duration,
	}
}
