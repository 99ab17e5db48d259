package tasks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/desertthunder/tunesync/internal/collection"
	"github.com/desertthunder/tunesync/internal/formatter"
	"github.com/desertthunder/tunesync/internal/library"
	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
	"github.com/desertthunder/tunesync/internal/tags"
)

// JobRecorder persists runs and job outcomes. Failures are logged and never stop the pipeline.
type JobRecorder interface {
	StartRun(ctx context.Context, run *models.Run) error
	RecordJob(ctx context.Context, job *models.JobRecord) error
	FinishRun(ctx context.Context, run *models.Run) error
}

// Options are the collaborators of a [Pipeline]. Fetcher and Tagger are required.
type Options struct {
	Config   shared.FulfillmentConfig
	Root     string
	Fetcher  Fetcher
	Tagger   tags.Tagger
	Images   *retryablehttp.Client
	Library  *library.Library // identifies untagged local files during reconcile
	Recorder JobRecorder
	Logger   *log.Logger
	Progress chan<- ProgressUpdate
}

// Pipeline makes the local library match a collection. It only reads the collection.
type Pipeline struct {
	coll       *collection.Collection
	cfg        shared.FulfillmentConfig
	layout     Layout
	fetcher    Fetcher
	tagger     tags.Tagger
	images     *retryablehttp.Client
	library    *library.Library
	recorder   JobRecorder
	logger     *log.Logger
	progress   chan<- ProgressUpdate
	escalation []string
	allowed    []string
}

// NewPipeline creates a pipeline over coll. The escalation arguments for second attempts come from
// fulfillment.cookies_from_browser, or else from the cURL capture at fulfillment.curl_headers_path.
func NewPipeline(coll *collection.Collection, opts Options) (*Pipeline, error) {
	switch {
	case coll == nil:
		return nil, fmt.Errorf("%w: collection", shared.ErrMissingArgument)
	case opts.Fetcher == nil:
		return nil, fmt.Errorf("%w: fetcher", shared.ErrMissingArgument)
	case opts.Tagger == nil:
		return nil, fmt.Errorf("%w: tagger", shared.ErrMissingArgument)
	case opts.Root == "":
		return nil, fmt.Errorf("%w: library root", shared.ErrMissingArgument)
	}

	cfg := opts.Config
	if cfg.Format == "" {
		cfg.Format = "mp3"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.DrainTimeoutSeconds <= 0 {
		cfg.DrainTimeoutSeconds = 600
	}

	p := &Pipeline{
		coll:     coll,
		cfg:      cfg,
		layout:   Layout{Root: opts.Root, Flatten: cfg.Flatten, Format: cfg.Format},
		fetcher:  opts.Fetcher,
		tagger:   opts.Tagger,
		images:   opts.Images,
		library:  opts.Library,
		recorder: opts.Recorder,
		logger:   opts.Logger,
		progress: opts.Progress,
	}
	if p.logger == nil {
		p.logger = shared.DiscardLogger()
	}
	if p.images == nil {
		p.images = formatter.NewImageClient(p.logger)
	}

	switch {
	case cfg.CookiesFromBrowser != "":
		p.escalation = []string{"--cookies-from-browser", cfg.CookiesFromBrowser}
	case cfg.CurlHeadersPath != "":
		headers, err := shared.ParseCurlFile(cfg.CurlHeadersPath)
		if err != nil {
			return nil, fmt.Errorf("%w: curl_headers_path: %w", shared.ErrInvalidConfig, err)
		}
		p.escalation = headers.FetcherArgs()
	}

	p.allowed = []string{"." + cfg.Format}
	for _, ext := range cfg.AllowedExtensions {
		p.allowed = append(p.allowed, strings.ToLower(ext))
	}
	return p, nil
}

// Layout returns the path layout in use.
func (p *Pipeline) Layout() Layout {
	return p.layout
}

// MaterializeResult summarizes one target.
type MaterializeResult struct {
	Target   string
	Dir      string
	Manifest string
	Cover    bool   // cover downloaded this run
	Present  int    // songs already on disk
	Jobs     []*Job // in submission order
	Cleaned  []string
	Err      error
}

// Count returns how many jobs ended in state.
func (r *MaterializeResult) Count(state JobState) int {
	n := 0
	for _, j := range r.Jobs {
		if j.State == state {
			n++
		}
	}
	return n
}

// Failed counts jobs that ended without a file, cancellations excluded.
func (r *MaterializeResult) Failed() int {
	return r.Count(JobMatchRejected) + r.Count(JobToolError) + r.Count(JobExhausted)
}

// Materialize makes t exist under dir, or under the layout's directory for t when dir is empty.
//
// Sidecars are rewritten, missing songs are downloaded through a fresh worker pool and tagged once,
// and files with extensions outside the allow-list are removed. Songs already on disk are left untouched.
func (p *Pipeline) Materialize(ctx context.Context, t Target, dir string) (*MaterializeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	if dir == "" {
		dir = p.layout.Dir(t)
	}

	logger := p.logger.With("target", t.Name())
	res := &MaterializeResult{Target: t.Name(), Dir: dir, Manifest: p.layout.Manifest(t, dir)}
	run := models.NewRun(models.RunMaterialize, t.Name())
	p.startRun(ctx, run)

	songs := p.layout.ownedSongs(p.coll, t)
	sendProgress(p.progress, prepareTargetUpdate(t, 0, len(songs)))

	if err := os.MkdirAll(dir, 0755); err != nil {
		res.Err = fmt.Errorf("failed to create %s: %w", dir, err)
		p.finishRun(ctx, run, res, 0, res.Err)
		return res, res.Err
	}
	p.writeSidecars(ctx, t, dir, res, logger)

	err := p.fulfill(ctx, t, dir, songs, res, logger)
	if err != nil && isCancellation(err) {
		res.Err = cancelled(err)
		logger.Warn("materialize cancelled", "submitted", len(res.Jobs))
		p.finishRun(ctx, run, res, 0, res.Err)
		return res, res.Err
	}
	if err != nil {
		res.Err = err
		logger.Error("pool shutdown", "error", err)
	}

	res.Cleaned = p.cleanup(dir, logger)
	sendProgress(p.progress, cleanupUpdate(t, len(res.Cleaned)))

	logger.Info("materialized", "present", res.Present, "downloaded", res.Count(JobSucceeded), "failed", res.Failed())
	sendProgress(p.progress, targetDoneUpdate(res))
	p.finishRun(ctx, run, res, 0, res.Err)
	return res, res.Err
}

// MaterializeAll materializes the liked songs, each album and each playlist in turn. A target's failure is
// logged and kept on its result; only cancellation stops the sequence.
func (p *Pipeline) MaterializeAll(ctx context.Context) ([]*MaterializeResult, error) {
	targets := []Target{LikedTarget(p.coll)}
	for _, a := range p.coll.Albums() {
		targets = append(targets, AlbumTarget(a))
	}
	for _, pl := range p.coll.Playlists() {
		targets = append(targets, PlaylistTarget(pl))
	}

	var results []*MaterializeResult
	for _, t := range targets {
		res, err := p.Materialize(ctx, t, "")
		if res != nil {
			results = append(results, res)
		}
		if err != nil && errors.Is(err, shared.ErrCancelled) {
			return results, err
		}
		if err != nil {
			p.logger.Warn("target failed", "target", t.Name(), "error", err)
		}
	}
	return results, nil
}

// writeSidecars rewrites the manifest and fetches the cover once. Failures are logged.
func (p *Pipeline) writeSidecars(ctx context.Context, t Target, dir string, res *MaterializeResult, logger *log.Logger) {
	var err error
	if t.Kind == TargetAlbum {
		err = formatter.WriteAlbumManifest(res.Manifest, formatter.AlbumManifest(t.Album))
	} else {
		err = formatter.WriteM3U(res.Manifest, p.manifestEntries(t, dir, filepath.Dir(res.Manifest)))
	}
	if err != nil {
		logger.Warn("writing manifest failed", "path", res.Manifest, "error", err)
	} else {
		sendProgress(p.progress, sidecarUpdate(t, res.Manifest))
	}

	if url := t.Cover(); url != "" {
		path := p.layout.Cover(t, dir)
		written, err := formatter.SaveCover(ctx, p.images, url, path)
		switch {
		case err != nil:
			logger.Warn("downloading cover failed", "url", url, "error", err)
		case written:
			res.Cover = true
			sendProgress(p.progress, sidecarUpdate(t, path))
		}
	}
}

// manifestEntries lists every song of t in collection order, relative to base.
func (p *Pipeline) manifestEntries(t Target, dir, base string) []formatter.M3UEntry {
	songs := t.Songs()
	entries := make([]formatter.M3UEntry, 0, len(songs))
	for _, s := range songs {
		path := p.layout.SongPath(p.coll, t, dir, s)
		if rel, err := filepath.Rel(base, path); err == nil {
			path = rel
		}
		entries = append(entries, formatter.M3UEntry{Duration: s.Duration, Title: s.Credit(), Path: path})
	}
	return entries
}

// fulfill submits a job for each missing song in order and drains the pool.
func (p *Pipeline) fulfill(ctx context.Context, t Target, dir string, songs []*models.Song, res *MaterializeResult, logger *log.Logger) error {
	pool := NewPool(p.cfg.Workers, p.cfg.QueueSize, p.cfg.SubmitBackoff())

	var submitErr error
	for _, song := range songs {
		if err := ctx.Err(); err != nil {
			submitErr = cancelled(err)
			break
		}

		path := filepath.Join(dir, p.layout.FileName(song))
		if exists(path) {
			res.Present++
			continue
		}

		job := p.newJob(t, dir, song)
		if err := pool.Submit(ctx, func(ctx context.Context) { p.runJob(ctx, job, logger) }); err != nil {
			submitErr = err
			break
		}
		res.Jobs = append(res.Jobs, job)
		sendProgress(p.progress, submitUpdate(t, len(res.Jobs), len(songs)-res.Present, job))
	}

	drainErr := pool.Shutdown(ctx, p.cfg.DrainTimeout())
	for _, job := range res.Jobs {
		if !job.State.Terminal() {
			job.State = JobCancelled
		}
	}
	if submitErr != nil {
		return submitErr
	}
	return drainErr
}

func (p *Pipeline) newJob(t Target, dir string, song *models.Song) *Job {
	album, position := "", 0
	if t.Kind == TargetAlbum {
		album, position = t.Album.Name, t.Album.IndexOf(song)+1
	}
	return &Job{
		Song:   song,
		Target: t.Name(),
		Request: FetchRequest{
			Descriptor: Descriptor(song),
			Dir:        dir,
			Filename:   p.layout.FileStem(song),
			Format:     p.cfg.Format,
			Duration:   song.Duration,
		},
		Tags:  songTags(song, album, p.coll.IsLiked(song), position),
		State: JobQueued,
	}
}

// runJob fetches with up to MaxAttempts tries. Only the second attempt carries the escalation arguments.
func (p *Pipeline) runJob(ctx context.Context, job *Job, logger *log.Logger) {
	defer func() { sendProgress(p.progress, jobUpdate(job)) }()

	logger = logger.With("song", job.Song.Credit())
	job.State = JobRunning

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			job.State = JobCancelled
			return
		}

		req := job.Request
		if attempt == 2 && len(p.escalation) > 0 {
			req.Extra = p.escalation
			job.Escalated = true
		}
		job.Attempts = attempt

		result, err := p.fetcher.Fetch(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				job.State = JobCancelled
				return
			}
			job.State = JobToolError
			job.Err = err
			logger.Error("fetcher failed to run", "error", err)
			return
		}
		job.ExitCode = result.ExitCode
		job.Output = result.Output

		// A file at the target path is a download whatever the exit code says.
		if exists(job.Path()) {
			if result.ExitCode != ExitOK {
				logger.Debug("fetcher exited non-zero after downloading", "exit", result.ExitCode)
			}
			job.State = JobSucceeded
			if err := p.tagger.Write(job.Path(), job.Tags); err != nil {
				logger.Warn("writing tags failed", "path", job.Path(), "error", err)
			} else {
				job.TagWritten = true
			}
			return
		}

		switch classifyExit(result.ExitCode) {
		case exitSuccess:
			job.State = JobMatchRejected
			logger.Info("no candidate matched", "descriptor", req.Descriptor)
			return
		case exitRejected:
			job.State = JobMatchRejected
			logger.Info("candidate rejected", "descriptor", req.Descriptor)
			return
		case exitStop:
			job.State = JobToolError
			job.Err = fmt.Errorf("%w: exit code %d", shared.ErrFetchFailed, result.ExitCode)
			logger.Error("fetcher stopped", "exit", result.ExitCode, "output", result.Output)
			return
		}

		if ctx.Err() != nil {
			job.State = JobCancelled
			return
		}
		logger.Warn("fetch attempt failed", "attempt", attempt, "exit", result.ExitCode, "output", result.Output)
	}

	job.State = JobExhausted
	job.Err = fmt.Errorf("%w: %d attempts, last exit code %d", shared.ErrFetchFailed, job.Attempts, job.ExitCode)
}

// cleanup removes regular files in dir whose extension is not allowed.
func (p *Pipeline) cleanup(dir string, logger *log.Logger) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("cleanup skipped", "dir", dir, "error", err)
		return nil
	}

	var removed []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if slices.Contains(p.allowed, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn("removing leftover failed", "path", path, "error", err)
			continue
		}
		logger.Debug("removed leftover", "path", path)
		removed = append(removed, path)
	}
	return removed
}

func (p *Pipeline) startRun(ctx context.Context, run *models.Run) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.StartRun(context.WithoutCancel(ctx), run); err != nil {
		p.logger.Warn("recording run failed", "error", err)
	}
}

// finishRun records job outcomes and closes the run. It runs even after cancellation.
func (p *Pipeline) finishRun(ctx context.Context, run *models.Run, res *MaterializeResult, removed int, runErr error) {
	if p.recorder == nil || run.ID() == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)

	var failed int
	if res != nil {
		for _, job := range res.Jobs {
			if err := p.recorder.RecordJob(ctx, job.Record(run.ID())); err != nil {
				p.logger.Warn("recording job failed", "error", err)
			}
		}
		failed = res.Failed()
		run.SetCounts(len(res.Jobs), res.Count(JobSucceeded), failed, removed)
	} else {
		run.SetCounts(0, 0, 0, removed)
	}

	status := models.RunCompleted
	switch {
	case runErr != nil && errors.Is(runErr, shared.ErrCancelled):
		status = models.RunCancelled
	case runErr != nil:
		status = models.RunFailed
	}
	run.Finish(status, runErr)
	if err := p.recorder.FinishRun(ctx, run); err != nil {
		p.logger.Warn("recording run failed", "error", err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

func isCancellation(err error) bool {
	return errors.Is(err, shared.ErrCancelled) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// cancelled wraps err as a user cancellation unless it already is one.
func cancelled(err error) error {
	if errors.Is(err, shared.ErrCancelled) {
		return err
	}
	return fmt.Errorf("%w: %w", shared.ErrCancelled, err)
}
