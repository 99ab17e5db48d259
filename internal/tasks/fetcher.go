package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
)

// FetchRequest asks a [Fetcher] to save one audio file as Dir/Filename.Format.
type FetchRequest struct {
	Descriptor string        // exact URL or a "ytsearch1:" query
	Dir        string        // destination directory
	Filename   string        // file name without extension
	Format     string        // audio format and extension, e.g. mp3
	Duration   time.Duration // expected length, zero when unknown
	Extra      []string      // credential escalation arguments, only set on the second attempt
}

// Path is the file the request is expected to produce.
func (r FetchRequest) Path() string {
	return filepath.Join(r.Dir, r.Filename+"."+r.Format)
}

// FetchResult carries the fetcher's exit code and combined output. Output is kept for diagnostics only.
type FetchResult struct {
	ExitCode int
	Output   string
}

// Fetcher downloads audio for a descriptor. A non-nil error means the fetcher could not be run at all.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error)
}

// yt-dlp exit codes with a fixed meaning.
const (
	ExitOK           = 0
	ExitBadOptions   = 2
	ExitNeedsUpdate  = 100
	ExitLimitReached = 101
)

type exitClass int

const (
	exitSuccess exitClass = iota
	exitStop
	exitRejected
	exitRetry
)

func (c exitClass) String() string {
	switch c {
	case exitSuccess:
		return "success"
	case exitStop:
		return "stop"
	case exitRejected:
		return "rejected"
	default:
		return "retry"
	}
}

// classifyExit maps the exit code of a run that left no file to what the job does next. Bad options and an
// outdated tool stop retries. yt-dlp exits with the download limit code after its one allowed download too,
// so the limit code only means rejection when the file is missing.
func classifyExit(code int) exitClass {
	switch code {
	case ExitOK:
		return exitSuccess
	case ExitBadOptions, ExitNeedsUpdate:
		return exitStop
	case ExitLimitReached:
		return exitRejected
	default:
		return exitRetry
	}
}

// durationSlack is how far a candidate's length may stray from the expected duration.
const durationSlack = 15 * time.Second

// YtDlpFetcher runs yt-dlp as a subprocess.
type YtDlpFetcher struct {
	path   string
	logger *log.Logger
}

// NewYtDlpFetcher creates a fetcher for the yt-dlp binary at path, or "yt-dlp" from PATH when empty.
func NewYtDlpFetcher(path string, logger *log.Logger) *YtDlpFetcher {
	if path == "" {
		path = "yt-dlp"
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &YtDlpFetcher{path: path, logger: logger}
}

// Args builds the yt-dlp command line for req. The descriptor always comes last, after "--".
func (f *YtDlpFetcher) Args(req FetchRequest) []string {
	args := []string{
		"--extract-audio",
		"--audio-format", req.Format,
		"--no-playlist",
		"--no-progress",
		"--max-downloads", "1",
		"--output", filepath.Join(req.Dir, req.Filename+".%(ext)s"),
	}
	if req.Duration > 0 {
		lo := max(req.Duration-durationSlack, 0)
		hi := req.Duration + durationSlack
		args = append(args, "--match-filter",
			fmt.Sprintf("duration >= %d & duration <= %d", int(lo.Seconds()), int(hi.Seconds())))
	}
	args = append(args, req.Extra...)
	return append(args, "--", req.Descriptor)
}

// Fetch runs yt-dlp and reports its exit code. Cancelling ctx kills the process.
func (f *YtDlpFetcher) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, f.path, f.Args(req)...)
	cmd.Stdout = &out
	cmd.Stderr = &out

	f.logger.Debug("running fetcher", "descriptor", req.Descriptor, "dir", req.Dir, "escalated", len(req.Extra) > 0)
	err := cmd.Run()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return &FetchResult{ExitCode: ExitOK, Output: out.String()}, nil
	case errors.As(err, &exitErr):
		return &FetchResult{ExitCode: exitErr.ExitCode(), Output: out.String()}, nil
	default:
		return nil, fmt.Errorf("%w: %v", shared.ErrFetchFailed, err)
	}
}

const (
	youtubeWatchURL = "https://music.youtube.com/watch?v="
	searchPrefix    = "ytsearch1:"
)

var queryBreakers = strings.NewReplacer(
	"\"", "", "'", "", "`", "", "\\", "", "\n", " ", "\r", " ", "\t", " ",
)

// Descriptor builds the fetch descriptor for song. A stored URL or YouTube id is used as is;
// otherwise title, main artist and album form a single-result search query.
func Descriptor(song *models.Song) string {
	if url := song.IDs.Get(models.ProviderURL); url != "" {
		return url
	}
	if id := song.IDs.Get(models.ProviderYouTube); id != "" {
		return youtubeWatchURL + id
	}

	var parts []string
	for _, p := range []string{song.Name, song.MainArtist(), song.AlbumName} {
		if p = sanitizeQuery(p); p != "" {
			parts = append(parts, p)
		}
	}
	return searchPrefix + strings.Join(parts, " ")
}

// sanitizeQuery drops quoting characters and leading dashes that would be read as options.
func sanitizeQuery(s string) string {
	s = strings.Join(strings.Fields(queryBreakers.Replace(s)), " ")
	return strings.TrimLeft(s, "-")
}
