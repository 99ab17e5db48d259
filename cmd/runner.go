package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/tunesync/internal/collection"
	"github.com/desertthunder/tunesync/internal/library"
	"github.com/desertthunder/tunesync/internal/repositories"
	"github.com/desertthunder/tunesync/internal/shared"
	"github.com/desertthunder/tunesync/internal/tags"
	"github.com/desertthunder/tunesync/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	tagger     tags.Tagger
	fetcher    tasks.Fetcher
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Tagger and Fetcher default to the file tagger and yt-dlp at fulfillment.fetcher_path.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Tagger     tags.Tagger
	Fetcher    tasks.Fetcher
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Tagger == nil {
		opts.Tagger = tags.NewFileTagger()
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		tagger:     opts.Tagger,
		fetcher:    opts.Fetcher,
	}
}

// SetLogger replaces the logger used by subsequent commands.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, importCommand, collectionCommand, resolveCommand,
		syncCommand, materializeCommand, reconcileCommand, historyCommand, youtubeCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadCollection reads the collection snapshot from the data directory.
func (r *Runner) loadCollection() (*collection.Collection, error) {
	coll, err := collection.Load(r.config.Paths.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	coll.SetLogger(r.logger)
	return coll, nil
}

func (r *Runner) saveCollection(coll *collection.Collection) error {
	if err := coll.Save(r.config.Paths.Data); err != nil {
		return fmt.Errorf("failed to save collection: %w", err)
	}
	r.logger.Debug("collection saved", "dir", r.config.Paths.Data)
	return nil
}

// newLibrary builds the configured resolver with its cache snapshot loaded.
func (r *Runner) newLibrary() (*library.Library, error) {
	backend, err := library.FromConfig(r.config, r.httpClient)
	if err != nil {
		return nil, err
	}

	lib := library.NewLibrary(backend, nil, r.logger)
	if err := lib.Load(r.config.Paths.Cache); err != nil {
		r.logger.Warn("failed to load resolver cache, starting empty", "error", err)
	}
	return lib, nil
}

// optionalLibrary is the resolver for commands that work without one.
func (r *Runner) optionalLibrary() *library.Library {
	lib, err := r.newLibrary()
	if err != nil {
		r.logger.Warn("resolver unavailable, untagged files are matched by name only", "error", err)
		return nil
	}
	return lib
}

func (r *Runner) flushLibrary(lib *library.Library) {
	if lib == nil {
		return
	}
	if err := lib.Flush(r.config.Paths.Cache); err != nil {
		r.logger.Warn("failed to flush resolver cache", "error", err)
	}
}

func (r *Runner) openLedger() (*sql.DB, error) {
	db, err := shared.OpenLedger(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open run ledger: %w", err)
	}
	return db, nil
}

// newPipeline wires a pipeline over coll that records runs into db and identifies untagged files through lib
// when they are non-nil.
func (r *Runner) newPipeline(coll *collection.Collection, db *sql.DB, lib *library.Library, progress chan<- tasks.ProgressUpdate) (*tasks.Pipeline, error) {
	fetcher := r.fetcher
	if fetcher == nil {
		fetcher = tasks.NewYtDlpFetcher(r.config.Fulfillment.FetcherPath, r.logger)
	}

	opts := tasks.Options{
		Config:   r.config.Fulfillment,
		Root:     r.config.Paths.Root,
		Fetcher:  fetcher,
		Tagger:   r.tagger,
		Library:  lib,
		Logger:   r.logger,
		Progress: progress,
	}
	if db != nil {
		opts.Recorder = repositories.NewJobRecorderAdapter(db)
	}
	return tasks.NewPipeline(coll, opts)
}

// loadToken reads the stored Spotify token.
func (r *Runner) loadToken() (*oauth2.Token, error) {
	var token oauth2.Token
	found, err := shared.ReadJSONFile(r.config.TokenPath(), &token)
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: run 'tunesync auth spotify' first", shared.ErrNotAuthenticated)
	}
	return &token, nil
}

// saveToken persists a Spotify token next to the collection snapshot.
func (r *Runner) saveToken(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: token cannot be nil", shared.ErrInvalidInput)
	}
	if err := shared.WriteJSONFile(r.config.TokenPath(), token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	r.logger.Debug("token saved", "path", r.config.TokenPath())
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
