package formatter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/tunesync/internal/models"
	th "github.com/desertthunder/tunesync/internal/testing"
)

func testListing() Listing {
	one := models.NewSong("Song One", "Artist One")
	one.AlbumName = "Album One"
	one.Duration = 3 * time.Minute
	one.IDs.Set(models.ProviderSpotify, "track1")
	two := models.NewSong("Song Two", "Artist Two", "Feature")
	two.Duration = 4*time.Minute + 5*time.Second
	return Listing{Name: "Test Playlist", Description: "A test playlist", Songs: []*models.Song{one, two}}
}

func TestFormatDuration(t *testing.T) {
	tt := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{65 * time.Second, "1:05"},
		{59*time.Minute + 59*time.Second + 600*time.Millisecond, "1:00:00"},
		{2*time.Hour + 3*time.Second, "2:00:03"},
	}
	for _, tc := range tt {
		if got := FormatDuration(tc.in); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testListing())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Title,Artist,Album,Duration,IDs") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "Song One,Artist One,Album One,3:00,spotify:track1") {
			t.Errorf("CSV missing first record, got: %s", output)
		}
		if !strings.Contains(output, `"Artist Two, Feature"`) {
			t.Errorf("CSV should quote joined artists, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("without cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(testListing(), "")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}

			output := string(data)
			for _, want := range []string{
				"# Test Playlist",
				"**Description**: A test playlist",
				"**Tracks**: 2",
				"**Duration**: 7:05",
				"1. Artist One - Song One (Album One) [3:00]",
				"2. Artist Two, Feature - Song Two [4:05]",
			} {
				if !strings.Contains(output, want) {
					t.Errorf("Markdown missing %q, got:\n%s", want, output)
				}
			}
			if strings.Contains(output, "![Cover]") {
				t.Error("Markdown should not reference a cover")
			}
		})

		t.Run("with cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(testListing(), "cover.jpg")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}
			if !strings.Contains(string(data), "![Cover](cover.jpg)") {
				t.Error("Markdown missing cover image reference")
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testListing())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		output := string(data)
		if !strings.Contains(output, "Playlist: Test Playlist") || !strings.Contains(output, "1. Artist One - Song One") {
			t.Errorf("unexpected text export:\n%s", output)
		}
	})

	t.Run("AlbumListing", func(t *testing.T) {
		a := models.NewAlbum("Violator", "Depeche Mode")
		a.AddSong(models.NewSong("Enjoy the Silence", "Depeche Mode"))
		l := AlbumListing(a)
		if l.Name != "Depeche Mode - Violator" || len(l.Songs) != 1 {
			t.Errorf("unexpected listing %+v", l)
		}
	})
}

func TestWriteExport(t *testing.T) {
	dir := t.TempDir()

	for _, format := range []Format{FormatCSV, FormatMarkdown, FormatText, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			path, err := WriteExport(testListing(), format, dir)
			if err != nil {
				t.Fatalf("WriteExport failed: %v", err)
			}
			if filepath.Base(path) != "Test Playlist."+string(format) {
				t.Errorf("unexpected file name %s", path)
			}
			th.AssertFileExists(t, path)
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		if _, err := WriteExport(testListing(), Format("xml"), dir); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}

func TestM3U(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Playlists", "Road Trip.m3u")
	entries := []M3UEntry{
		{Duration: 3*time.Minute + 400*time.Millisecond, Title: "Artist One - Song One", Path: "../Albums/Artist One - Album/Artist One - Song One.mp3"},
		{Title: "Unknown", Path: "Unknown.mp3"},
	}

	if err := WriteM3U(path, entries); err != nil {
		t.Fatalf("WriteM3U failed: %v", err)
	}

	content := th.MustReadFile(t, path)
	if !strings.HasPrefix(content, "#EXTM3U\n#EXTINF:180,Artist One - Song One\n") {
		t.Errorf("unexpected m3u content:\n%s", content)
	}
	if !strings.Contains(content, "#EXTINF:-1,Unknown\n") {
		t.Errorf("expected -1 for unknown duration:\n%s", content)
	}

	got, err := ParseM3U(path)
	if err != nil {
		t.Fatalf("ParseM3U failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Duration != 3*time.Minute || got[0].Title != "Artist One - Song One" {
		t.Errorf("unexpected first entry %+v", got[0])
	}
	if filepath.ToSlash(got[0].Path) != entries[0].Path {
		t.Errorf("expected path %s, got %s", entries[0].Path, got[0].Path)
	}
	if got[1].Duration != 0 {
		t.Errorf("expected zero duration, got %v", got[1].Duration)
	}

	t.Run("plain m3u", func(t *testing.T) {
		plain := filepath.Join(t.TempDir(), "plain.m3u")
		th.MustWriteFile(t, plain, "\ufeffa.mp3\n# comment\n\nb.flac\n")
		got, err := ParseM3U(plain)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0].Path != "a.mp3" || got[1].Path != "b.flac" {
			t.Errorf("unexpected entries %+v", got)
		}
	})
}

func TestAlbumManifest(t *testing.T) {
	a := models.NewAlbum("Violator", "Depeche Mode")
	a.IDs.Set(models.ProviderMBID, "mb1")
	s := models.NewSong("Enjoy the Silence", "Depeche Mode")
	s.Duration = 6 * time.Minute
	a.AddSong(s)

	path := filepath.Join(t.TempDir(), "album.nfo")
	fields := append(AlbumManifest(a), ManifestField{"note", "line one\nline two"})
	if err := WriteAlbumManifest(path, fields); err != nil {
		t.Fatalf("WriteAlbumManifest failed: %v", err)
	}

	got, err := ReadAlbumManifest(path)
	if err != nil {
		t.Fatalf("ReadAlbumManifest failed: %v", err)
	}

	want := map[string]string{
		"album":    "Violator",
		"artist":   "Depeche Mode",
		"tracks":   "1",
		"duration": "6:00",
		"mbid":     "mb1",
		"track01":  "Depeche Mode - Enjoy the Silence",
		"note":     "line one line two",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d fields, got %d: %+v", len(want), len(got), got)
	}
	for _, f := range got {
		if want[f.Key] != f.Value {
			t.Errorf("field %s: want %q, got %q", f.Key, want[f.Key], f.Value)
		}
	}
	if got[0].Key != "album" {
		t.Errorf("expected field order preserved, first is %s", got[0].Key)
	}
}

func TestSaveCover(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	client := NewImageClient(nil)
	client.RetryMax = 0
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cover.jpg")

	t.Run("downloads once", func(t *testing.T) {
		wrote, err := SaveCover(ctx, client, srv.URL+"/cover.jpg", path)
		if err != nil || !wrote {
			t.Fatalf("expected first save to write, got %v %v", wrote, err)
		}
		if th.MustReadFile(t, path) != "jpeg-bytes" {
			t.Error("unexpected cover content")
		}

		wrote, err = SaveCover(ctx, client, srv.URL+"/cover.jpg", path)
		if err != nil || wrote {
			t.Fatalf("expected second save to skip, got %v %v", wrote, err)
		}
		if hits.Load() != 1 {
			t.Errorf("expected 1 request, got %d", hits.Load())
		}
	})

	t.Run("empty url is a no-op", func(t *testing.T) {
		wrote, err := SaveCover(ctx, client, "", filepath.Join(t.TempDir(), "x.jpg"))
		if err != nil || wrote {
			t.Errorf("expected no-op, got %v %v", wrote, err)
		}
	})

	t.Run("http error", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "missing.jpg")
		if _, err := SaveCover(ctx, client, srv.URL+"/missing.jpg", missing); err == nil {
			t.Error("expected error for 404")
		}
		if _, err := os.Stat(missing); err == nil {
			t.Error("no file should be written on failure")
		}
	})
}

func TestDownloadImage(t *testing.T) {
	t.Run("EmptyURL", func(t *testing.T) {
		if _, err := DownloadImage(context.Background(), nil, ""); err == nil {
			t.Error("expected error for empty URL")
		}
	})

	t.Run("BodyReadFailure", func(t *testing.T) {
		client := NewImageClient(nil)
		client.RetryMax = 0
		client.HTTPClient.Transport = th.NewMockRoundTripper(&http.Response{
			StatusCode: http.StatusOK,
			Body:       &th.FCloser{},
			Header:     http.Header{},
		}, nil)
		if _, err := DownloadImage(context.Background(), client, "http://example.invalid/a.jpg"); err == nil {
			t.Error("expected read failure")
		}
	})
}

func TestSummaryTable(t *testing.T) {
	out := SummaryTable([]string{"Target", "Songs"}, [][]string{{"Liked Songs", "12"}, {"Violator", "9"}})
	for _, want := range []string{"Target", "Liked Songs", "Violator", "12"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
