package shared

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestNormalizeTrackKey(t *testing.T) {
	tc := []struct {
		name   string
		title  string
		artist string
		want   string
	}{
		{
			name:   "basic normalization",
			title:  "Song Title",
			artist: "Artist Name",
			want:   "song title|artist name",
		},
		{
			name:   "extra whitespace",
			title:  "  Song   Title  ",
			artist: "  Artist   Name  ",
			want:   "song title|artist name",
		},
		{
			name:   "mixed case",
			title:  "SoNg TiTlE",
			artist: "ArTiSt NaMe",
			want:   "song title|artist name",
		},
		{
			name:   "accents folded",
			title:  "Café",
			artist: "Beyoncé",
			want:   "cafe|beyonce",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTrackKey(tt.title, tt.artist)
			if got != tt.want {
				t.Errorf("NormalizeTrackKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSafeName(t *testing.T) {
	tc := []struct {
		in   string
		want string
	}{
		{"AC/DC", "AC_DC"},
		{"What?", "What_"},
		{"  .hidden", "hidden"},
		{"", "_"},
		{"Plain Name", "Plain Name"},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			if got := SafeName(tt.in); got != tt.want {
				t.Errorf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestJSONFiles(t *testing.T) {
	t.Run("missing file is not an error", func(t *testing.T) {
		var v map[string]string
		found, err := ReadJSONFile(filepath.Join(t.TempDir(), "nope.json"), &v)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found {
			t.Error("expected found to be false")
		}
	})

	t.Run("write then read", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "data.json")
		if err := WriteJSONFile(path, map[string]string{"a": "b"}); err != nil {
			t.Fatalf("failed to write: %v", err)
		}

		var v map[string]string
		found, err := ReadJSONFile(path, &v)
		if err != nil || !found {
			t.Fatalf("failed to read back: found=%v err=%v", found, err)
		}
		if v["a"] != "b" {
			t.Errorf("expected a=b, got %v", v)
		}
	})
}

func TestBrowserCommand(t *testing.T) {
	orig := getRuntime
	defer func() { getRuntime = orig }()

	tt := []struct {
		goos    string
		want    string
		wantErr bool
	}{
		{goos: "darwin", want: "open"},
		{goos: "linux", want: "xdg-open"},
		{goos: "windows", want: "rundll32"},
		{goos: "plan9", wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.goos, func(t *testing.T) {
			getRuntime = func() string { return tc.goos }
			cmd, err := browserCommand("https://example.com")
			if (err != nil) != tc.wantErr {
				t.Fatalf("browserCommand() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			if got := filepath.Base(cmd.Path); got != tc.want && cmd.Args[0] != tc.want {
				t.Errorf("browserCommand() = %s, want %s", got, tc.want)
			}
		})
	}

	if err := OpenBrowser(""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty url, got %v", err)
	}
}
