package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Target  string // Target name (Liked Songs, album title, playlist name)
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	PrepareTarget Phase = iota
	WriteSidecars
	SubmitJobs
	FinishJob
	Cleanup
	ReconcileTarget
	RemoveFile
	TargetDone
)

func (p Phase) String() string {
	switch p {
	case PrepareTarget:
		return "prepare_target"
	case WriteSidecars:
		return "write_sidecars"
	case SubmitJobs:
		return "submit_jobs"
	case FinishJob:
		return "finish_job"
	case Cleanup:
		return "cleanup"
	case ReconcileTarget:
		return "reconcile_target"
	case RemoveFile:
		return "remove_file"
	case TargetDone:
		return "target_done"
	default:
		return ""
	}
}

func prepareTargetUpdate(t Target, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PrepareTarget,
		Target:  t.Name(),
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Materializing %s (%d songs)...", t.Name(), total),
	}
}

func sidecarUpdate(t Target, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteSidecars,
		Target:  t.Name(),
		Message: fmt.Sprintf("Wrote %s", path),
	}
}

func submitUpdate(t Target, step, total int, job *Job) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SubmitJobs,
		Target:  t.Name(),
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Queued %s", step, total, job.Song.Credit()),
		Data:    job,
	}
}

func jobUpdate(job *Job) ProgressUpdate {
	mark := "✗"
	if job.State == JobSucceeded {
		mark = "✓"
	}
	return ProgressUpdate{
		Phase:   FinishJob,
		Target:  job.Target,
		Message: fmt.Sprintf("%s %s (%s)", mark, job.Song.Credit(), job.State),
		Data:    job,
	}
}

func cleanupUpdate(t Target, removed int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Cleanup,
		Target:  t.Name(),
		Message: fmt.Sprintf("Removed %d leftover files", removed),
	}
}

func targetDoneUpdate(res *MaterializeResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:  TargetDone,
		Target: res.Target,
		Message: fmt.Sprintf("%s: %d present, %d downloaded, %d failed",
			res.Target, res.Present, res.Count(JobSucceeded), res.Failed()),
		Data: res,
	}
}

func reconcileUpdate(kind, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReconcileTarget,
		Target:  name,
		Message: fmt.Sprintf("Reconciling %s %s...", kind, name),
	}
}

func removeUpdate(path string, whole bool) ProgressUpdate {
	what := "file"
	if whole {
		what = "target"
	}
	return ProgressUpdate{
		Phase:   RemoveFile,
		Message: fmt.Sprintf("Removed %s %s", what, path),
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
