package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/tunesync/internal/collection"
	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
	"github.com/desertthunder/tunesync/internal/tasks"
	tu "github.com/desertthunder/tunesync/internal/testing"
)

// okFetcher writes a file for every request and exits 0.
type okFetcher struct{}

func (okFetcher) Fetch(ctx context.Context, req tasks.FetchRequest) (*tasks.FetchResult, error) {
	if err := os.WriteFile(req.Path(), []byte("audio"), 0644); err != nil {
		return nil, err
	}
	return &tasks.FetchResult{ExitCode: 0}, nil
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func testConfig(t *testing.T) *shared.Config {
	t.Helper()
	dir := t.TempDir()

	config := shared.DefaultConfig()
	config.Paths.Root = filepath.Join(dir, "library")
	config.Paths.Data = filepath.Join(dir, "data")
	config.Paths.Cache = filepath.Join(dir, "cache")
	config.Database.Path = filepath.Join(dir, "ledger.db")
	config.Library.Backend = "musicbrainz"
	return config
}

func testRunner(t *testing.T, config *shared.Config) *Runner {
	t.Helper()
	offline := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("offline")
	})}
	return NewRunner(RunnerOpts{
		Config:     config,
		HTTPClient: offline,
		Logger:     shared.DiscardLogger(),
		Output:     &bytes.Buffer{},
		Tagger:     tu.NewFakeTagger(),
		Fetcher:    okFetcher{},
	})
}

// runCommand runs args against a fresh command tree and returns what the command printed.
func runCommand(t *testing.T, r *Runner, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	r.output = out

	app := &cli.Command{Name: "tunesync", Commands: r.register()}
	err := app.Run(context.Background(), append([]string{"tunesync"}, args...))
	return out.String(), err
}

func saveFixture(t *testing.T, config *shared.Config) {
	t.Helper()
	coll := collection.New()
	coll.AddSong(models.NewSong("Africa", "Toto"))

	playlist := models.NewPlaylist("Road Trip")
	playlist.AddSong(models.NewSong("Hold the Line", "Toto"))
	coll.AddPlaylist(playlist)

	if err := coll.Save(config.Paths.Data); err != nil {
		t.Fatalf("failed to save fixture collection: %v", err)
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			tagger := tu.NewFakeTagger()
			fetcher := okFetcher{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Tagger:     tagger,
				Fetcher:    fetcher,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.tagger != tagger {
				t.Error("expected tagger to be set")
			}
			if runner.fetcher != fetcher {
				t.Error("expected fetcher to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with nil tagger uses file tagger", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.tagger == nil {
				t.Error("expected default tagger to be set")
			}
			if runner.fetcher != nil {
				t.Error("fetcher should stay nil until a pipeline is built")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}

		seen := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
				continue
			}
			if seen[cmd.Name] {
				t.Errorf("command %q registered twice", cmd.Name)
			}
			seen[cmd.Name] = true
		}
	})

	t.Run("tokens", func(t *testing.T) {
		t.Run("round trip", func(t *testing.T) {
			runner := testRunner(t, testConfig(t))

			token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}
			if err := runner.saveToken(token); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			loaded, err := runner.loadToken()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if loaded.AccessToken != "access" || loaded.RefreshToken != "refresh" {
				t.Errorf("loaded token = %+v", loaded)
			}
		})

		t.Run("missing token", func(t *testing.T) {
			runner := testRunner(t, testConfig(t))

			if _, err := runner.loadToken(); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("nil token", func(t *testing.T) {
			runner := testRunner(t, testConfig(t))

			if err := runner.saveToken(nil); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	})
}

func TestSetupCommand(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	tu.MustWriteFile(t, configPath, fmt.Sprintf(`[paths]
root = %q
data = %q
cache = %q

[database]
path = %q
`, filepath.Join(dir, "library"), filepath.Join(dir, "data"), filepath.Join(dir, "cache"), filepath.Join(dir, "ledger.db")))

	runner := testRunner(t, shared.DefaultConfig())
	out, err := runCommand(t, runner, "setup", "--config", configPath)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if !strings.Contains(out, "Setup complete") {
		t.Errorf("unexpected output: %s", out)
	}
	if runner.configPath != configPath {
		t.Errorf("configPath = %q, want %q", runner.configPath, configPath)
	}
	for _, sub := range []string{"library", "data", "cache"} {
		tu.AssertDirExists(t, filepath.Join(dir, sub))
	}
	tu.AssertFileExists(t, filepath.Join(dir, "ledger.db"))
}

func TestImportCommand(t *testing.T) {
	t.Run("playlist files", func(t *testing.T) {
		config := testConfig(t)
		runner := testRunner(t, config)

		music := t.TempDir()
		tu.MustWriteFile(t, filepath.Join(music, "Road Trip.m3u"),
			"#EXTM3U\n#EXTINF:295,Toto - Africa\nToto - Africa.mp3\n#EXTINF:236,Toto - Hold the Line\nToto - Hold the Line.mp3\n")

		out, err := runCommand(t, runner, "import", "--dir", music, "m3u")
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if !strings.Contains(out, "Import from m3u") {
			t.Errorf("expected import report, got: %s", out)
		}

		coll, err := collection.Load(config.Paths.Data)
		if err != nil {
			t.Fatalf("failed to load collection: %v", err)
		}
		playlist := coll.PlaylistByName("Road Trip")
		if playlist == nil {
			t.Fatal("expected imported playlist to be saved")
		}
		if playlist.Len() != 2 {
			t.Errorf("playlist has %d songs, want 2", playlist.Len())
		}
	})

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"missing provider", []string{"import"}, shared.ErrMissingArgument},
		{"unknown provider", []string{"import", "tidal"}, shared.ErrInvalidArgument},
		{"local without dir", []string{"import", "local"}, shared.ErrMissingArgument},
		{"spotify without token", []string{"import", "spotify"}, shared.ErrNotAuthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := testConfig(t)
			config.Credentials.Spotify.ClientID = "id"
			config.Credentials.Spotify.ClientSecret = "secret"

			_, err := runCommand(t, testRunner(t, config), tt.args...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCollectionCommands(t *testing.T) {
	config := testConfig(t)
	saveFixture(t, config)
	runner := testRunner(t, config)

	t.Run("show", func(t *testing.T) {
		out, err := runCommand(t, runner, "collection", "show")
		if err != nil {
			t.Fatalf("show failed: %v", err)
		}
		for _, want := range []string{"Liked Songs", "Road Trip", "Playlists"} {
			if !strings.Contains(out, want) {
				t.Errorf("show output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("show json", func(t *testing.T) {
		out, err := runCommand(t, runner, "collection", "show", "--json")
		if err != nil {
			t.Fatalf("show failed: %v", err)
		}
		if !strings.Contains(out, `"LikedSongs": 1`) || !strings.Contains(out, `"name": "Road Trip"`) {
			t.Errorf("unexpected JSON:\n%s", out)
		}
	})

	t.Run("export", func(t *testing.T) {
		dir := t.TempDir()
		out, err := runCommand(t, runner, "collection", "export", "--format", "csv", "--output", dir, "playlist:Road Trip")
		if err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if !strings.Contains(out, "Exported 1 songs") {
			t.Errorf("unexpected output: %s", out)
		}

		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) != 1 || filepath.Ext(entries[0].Name()) != ".csv" {
			t.Errorf("expected one csv file in %s, got %v (%v)", dir, entries, err)
		}
	})

	t.Run("export unknown target", func(t *testing.T) {
		_, err := runCommand(t, runner, "collection", "export", "album:Nothing")
		if !errors.Is(err, shared.ErrAlbumNotFound) {
			t.Errorf("expected ErrAlbumNotFound, got %v", err)
		}
	})

	t.Run("save copy", func(t *testing.T) {
		dir := t.TempDir()
		if _, err := runCommand(t, runner, "collection", "save", "--to", dir); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, collection.LikedFile))
	})

	t.Run("remove", func(t *testing.T) {
		if _, err := runCommand(t, runner, "collection", "remove", "song", "africa"); err != nil {
			t.Fatalf("remove song failed: %v", err)
		}
		if _, err := runCommand(t, runner, "collection", "remove", "playlist", "Road Trip"); err != nil {
			t.Fatalf("remove playlist failed: %v", err)
		}

		coll, err := collection.Load(config.Paths.Data)
		if err != nil {
			t.Fatalf("failed to load collection: %v", err)
		}
		if coll.Liked.Len() != 0 || len(coll.Playlists()) != 0 {
			t.Errorf("expected empty collection, got %d liked and %d playlists", coll.Liked.Len(), len(coll.Playlists()))
		}

		_, err = runCommand(t, runner, "collection", "remove", "album", "Nothing")
		if !errors.Is(err, shared.ErrAlbumNotFound) {
			t.Errorf("expected ErrAlbumNotFound, got %v", err)
		}
	})
}

func TestMaterializeAndHistory(t *testing.T) {
	config := testConfig(t)
	saveFixture(t, config)
	runner := testRunner(t, config)

	out, err := runCommand(t, runner, "materialize", "liked")
	if err != nil {
		t.Fatalf("materialize failed: %v", err)
	}
	if !strings.Contains(out, "Liked Songs: 0 present, 1 downloaded, 0 failed") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, err = runCommand(t, runner, "sync", "--no-reconcile")
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if !strings.Contains(out, "Liked Songs: 1 present") || !strings.Contains(out, "Road Trip: 0 present, 1 downloaded") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, err = runCommand(t, runner, "history", "--kind", "materialize")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	for _, want := range []string{"Liked Songs", "Road Trip", "completed"} {
		if !strings.Contains(out, want) {
			t.Errorf("history missing %q:\n%s", want, out)
		}
	}

	out, err = runCommand(t, runner, "history", "--failed")
	if err != nil {
		t.Fatalf("history --failed failed: %v", err)
	}
	if !strings.Contains(out, "No failed jobs") {
		t.Errorf("unexpected output:\n%s", out)
	}

	t.Run("reconcile after removal", func(t *testing.T) {
		if _, err := runCommand(t, runner, "collection", "remove", "playlist", "Road Trip"); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		out, err := runCommand(t, runner, "reconcile")
		if err != nil {
			t.Fatalf("reconcile failed: %v", err)
		}
		if !strings.Contains(out, "Reconciled:") {
			t.Errorf("unexpected output:\n%s", out)
		}
		tu.AssertNotExists(t, filepath.Join(config.Paths.Root, tasks.PlaylistsDir, "Road Trip"))
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := runCommand(t, runner, "materialize", "playlist:Nope")
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})
}

func TestResolveCommand(t *testing.T) {
	config := testConfig(t)
	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: shared.DiscardLogger(),
		HTTPClient: &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": {"application/json"}},
				Body:       io.NopCloser(strings.NewReader(`{"recordings": []}`)),
				Request:    req,
			}, nil
		})},
	})

	out, err := runCommand(t, runner, "resolve", "song", "Nonexistent Song")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !strings.Contains(out, "not found") {
		t.Errorf("expected a not found miss, got: %s", out)
	}

	if _, err := runCommand(t, runner, "resolve", "song"); !errors.Is(err, shared.ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
}

func TestYouTubeRawCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/library/playlists":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `[{"playlistId": "PL1", "title": "Road Trip"}]`)
		default:
			http.Error(w, `{"detail": "missing"}`, http.StatusNotFound)
		}
	}))
	defer srv.Close()

	config := testConfig(t)
	config.Credentials.YouTube.ProxyURL = srv.URL
	runner := testRunner(t, config)

	out, err := runCommand(t, runner, "youtube", "raw", "library/playlists")
	if err != nil {
		t.Fatalf("raw failed: %v", err)
	}
	if !strings.Contains(out, `"title": "Road Trip"`) {
		t.Errorf("unexpected output: %s", out)
	}

	if _, err := runCommand(t, runner, "youtube", "raw", "/nope"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
