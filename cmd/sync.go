package main

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunesync/internal/collection"
	"github.com/desertthunder/tunesync/internal/library"
	"github.com/desertthunder/tunesync/internal/shared"
	"github.com/desertthunder/tunesync/internal/tasks"
)

// syncSession is a pipeline whose progress is printed while it runs. closeSession must be called once the
// pipeline has returned.
type syncSession struct {
	pipeline *tasks.Pipeline
	db       *sql.DB
	lib      *library.Library
	progress chan tasks.ProgressUpdate
	wg       sync.WaitGroup
}

func (r *Runner) startSession() (*syncSession, error) {
	coll, err := r.loadCollection()
	if err != nil {
		return nil, err
	}
	return r.startSessionFor(coll)
}

func (r *Runner) startSessionFor(coll *collection.Collection) (*syncSession, error) {
	db, err := r.openLedger()
	if err != nil {
		r.logger.Warn("run ledger unavailable, history will not be recorded", "error", err)
		db = nil
	}

	s := &syncSession{
		db:       db,
		lib:      r.optionalLibrary(),
		progress: make(chan tasks.ProgressUpdate, 64),
	}
	s.pipeline, err = r.newPipeline(coll, db, s.lib, s.progress)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for u := range s.progress {
			r.printProgress(u)
		}
	}()
	return s, nil
}

func (r *Runner) closeSession(s *syncSession) {
	close(s.progress)
	s.wg.Wait()
	r.flushLibrary(s.lib)
	if s.db != nil {
		s.db.Close()
	}
}

// printProgress writes per-song lines; totals are printed once the pipeline returns.
func (r *Runner) printProgress(u tasks.ProgressUpdate) {
	switch u.Phase {
	case tasks.PrepareTarget, tasks.FinishJob, tasks.RemoveFile:
		r.writePlain("%s\n", u.Message)
	default:
		r.logger.Debug(u.Message, "phase", u.Phase, "target", u.Target, "step", u.Step, "total", u.Total)
	}
}

// Sync materializes every target, then reconciles unless --no-reconcile is set.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	s, err := r.startSession()
	if err != nil {
		return err
	}

	results, err := s.pipeline.MaterializeAll(ctx)
	var rec *tasks.ReconcileResult
	if err == nil && !cmd.Bool("no-reconcile") {
		rec, err = s.pipeline.Reconcile(ctx)
	}
	r.closeSession(s)

	r.writeResults(results)
	if rec != nil {
		r.writeReconcile(rec)
	}
	return err
}

// Materialize fulfills one target.
func (r *Runner) Materialize(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("target")
	if name == "" {
		return fmt.Errorf("%w: target (liked, album:<title> or playlist:<name>)", shared.ErrMissingArgument)
	}

	coll, err := r.loadCollection()
	if err != nil {
		return err
	}
	t, err := tasks.ParseTarget(coll, name)
	if err != nil {
		return err
	}

	s, err := r.startSessionFor(coll)
	if err != nil {
		return err
	}
	res, err := s.pipeline.Materialize(ctx, t, cmd.String("dir"))
	r.closeSession(s)

	if res != nil {
		r.writeResults([]*tasks.MaterializeResult{res})
	}
	return err
}

// Reconcile removes what left the collection.
func (r *Runner) Reconcile(ctx context.Context, cmd *cli.Command) error {
	s, err := r.startSession()
	if err != nil {
		return err
	}
	res, err := s.pipeline.Reconcile(ctx)
	r.closeSession(s)

	if res != nil {
		r.writeReconcile(res)
	}
	return err
}

func (r *Runner) writeResults(results []*tasks.MaterializeResult) {
	for _, res := range results {
		if res == nil {
			continue
		}
		r.writePlain("%s: %d present, %d downloaded, %d failed, %d cleaned\n",
			res.Target, res.Present, res.Count(tasks.JobSucceeded), res.Failed(), len(res.Cleaned))
		for _, job := range res.Jobs {
			switch job.State {
			case tasks.JobSucceeded, tasks.JobCancelled:
				continue
			}
			r.writePlain("  ✗ %s (%s)\n", job.Song.Credit(), job.State)
		}
		if res.Err != nil {
			r.writePlain("  ✗ %v\n", res.Err)
		}
	}
}

func (r *Runner) writeReconcile(res *tasks.ReconcileResult) {
	r.writePlain("Reconciled: %d songs removed, %d targets removed, %d kept\n",
		len(res.Removed), len(res.RemovedTargets), len(res.Kept))
}
