package services

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tunesync/internal/formatter"
	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
	"github.com/desertthunder/tunesync/internal/tags"
)

// PlaylistFileService imports every .m3u and .m3u8 file under a root as a playlist named after the file.
type PlaylistFileService struct {
	root   string
	tagger tags.Tagger
	logger *log.Logger
}

// NewPlaylistFileService creates a playlist file scanner. A nil tagger reads tags from disk.
func NewPlaylistFileService(root string, tagger tags.Tagger, logger *log.Logger) *PlaylistFileService {
	if tagger == nil {
		tagger = tags.NewFileTagger()
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &PlaylistFileService{root: root, tagger: tagger, logger: logger}
}

// Name returns the provider key.
func (p *PlaylistFileService) Name() string {
	return string(KindPlaylistFile)
}

// LikedSongs is unsupported.
func (p *PlaylistFileService) LikedSongs(context.Context, string) (*Page, error) {
	return nil, fmt.Errorf("%w: playlist files have no liked songs", shared.ErrUnsupported)
}

// Albums is unsupported.
func (p *PlaylistFileService) Albums(context.Context, string) (*Page, error) {
	return nil, fmt.Errorf("%w: playlist files have no albums", shared.ErrUnsupported)
}

// Playlists returns every playlist file under the root in one page.
func (p *PlaylistFileService) Playlists(ctx context.Context, _ string) (*Page, error) {
	var files []string
	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsPlaylistFile(path) {
			files = append(files, path)
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", p.root, err)
	}

	page := &Page{}
	for _, file := range files {
		playlist, err := p.ScanFile(ctx, file)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			p.logger.Warn("skipping playlist file", "path", file, "error", err)
			continue
		}
		page.Playlists = append(page.Playlists, playlist)
	}
	return page, nil
}

// ScanFile reads one playlist file. Entries that exist on disk are read through the tagger and carry their
// absolute path; missing entries fall back to the #EXTINF title.
func (p *PlaylistFileService) ScanFile(ctx context.Context, path string) (*models.Playlist, error) {
	entries, err := formatter.ParseM3U(path)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	playlist := models.NewPlaylist(name)
	dir := filepath.Dir(path)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		target := e.Path
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, target)
		}

		var song *models.Song
		if _, err := os.Stat(target); err == nil {
			song = songFromFile(p.tagger, target, p.logger)
		} else {
			song = songFromExtInf(e)
		}
		if song.Duration == 0 {
			song.Duration = e.Duration
		}
		playlist.AddSong(song)
	}
	return playlist, nil
}

// IsPlaylistFile reports whether path is an m3u playlist.
func IsPlaylistFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".m3u", ".m3u8":
		return true
	}
	return false
}

func songFromExtInf(e formatter.M3UEntry) *models.Song {
	title := e.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(e.Path), filepath.Ext(e.Path))
	}
	song := &models.Song{Name: title}
	if artist, name, ok := strings.Cut(title, " - "); ok {
		song.Name = strings.TrimSpace(name)
		song.Artists = []models.Artist{{Name: strings.TrimSpace(artist)}}
	}
	return song
}
