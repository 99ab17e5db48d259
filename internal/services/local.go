package services

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

	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
	"github.com/desertthunder/tunesync/internal/tags"
)

// AudioExtensions are the file extensions treated as songs when scanning.
var AudioExtensions = []string{".mp3", ".flac", ".m4a", ".ogg", ".opus", ".wav"}

// IsAudioFile reports whether path has an audio extension.
func IsAudioFile(path string) bool {
	return slices.Contains(AudioExtensions, strings.ToLower(filepath.Ext(path)))
}

// LocalService imports a directory tree of tagged audio files.
//
// Files directly under the root, or under a folder named like the liked songs container, are liked songs.
// Any other folder whose files all carry the same album tag is an album; a folder of mixed or missing
// album tags is a playlist named after the folder. A playlist of singles that happen to share an album
// tag is therefore read as an album, and an album with inconsistent tags as a playlist.
type LocalService struct {
	root   string
	tagger tags.Tagger
	logger *log.Logger

	scanned *localScan
}

type localScan struct {
	liked     []*models.Song
	albums    []*models.Album
	playlists []*models.Playlist
}

// NewLocalService creates a scanner rooted at root. A nil tagger reads tags from disk.
func NewLocalService(root string, tagger tags.Tagger, logger *log.Logger) *LocalService {
	if tagger == nil {
		tagger = tags.NewFileTagger()
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &LocalService{root: root, tagger: tagger, logger: logger}
}

// Name returns the provider key.
func (l *LocalService) Name() string {
	return string(KindLocal)
}

// LikedSongs returns every liked song found under the root in one page.
func (l *LocalService) LikedSongs(ctx context.Context, _ string) (*Page, error) {
	scan, err := l.scan(ctx)
	if err != nil {
		return nil, err
	}
	return &Page{Songs: scan.liked}, nil
}

// Albums returns every folder classified as an album in one page.
func (l *LocalService) Albums(ctx context.Context, _ string) (*Page, error) {
	scan, err := l.scan(ctx)
	if err != nil {
		return nil, err
	}
	return &Page{Albums: scan.albums}, nil
}

// Playlists returns every folder classified as a playlist in one page.
func (l *LocalService) Playlists(ctx context.Context, _ string) (*Page, error) {
	scan, err := l.scan(ctx)
	if err != nil {
		return nil, err
	}
	return &Page{Playlists: scan.playlists}, nil
}

// ScanDir reads the audio files directly inside dir, in name order. Each song carries its absolute path.
// A missing directory yields no songs.
func (l *LocalService) ScanDir(ctx context.Context, dir string) ([]*models.Song, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var songs []*models.Song
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !IsAudioFile(e.Name()) {
			continue
		}
		songs = append(songs, songFromFile(l.tagger, filepath.Join(dir, e.Name()), l.logger))
	}
	return songs, nil
}

func (l *LocalService) scan(ctx context.Context) (*localScan, error) {
	if l.scanned != nil {
		return l.scanned, nil
	}

	info, err := os.Stat(l.root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", l.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", shared.ErrInvalidArgument, l.root)
	}

	var dirs []string
	err = filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			l.logger.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}

	scan := &localScan{}
	for _, dir := range dirs {
		songs, err := l.ScanDir(ctx, dir)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			l.logger.Warn("skipping folder", "dir", dir, "error", err)
			continue
		}
		if len(songs) == 0 {
			continue
		}

		name := filepath.Base(dir)
		switch {
		case dir == l.root || name == models.LikedSongsName:
			scan.liked = append(scan.liked, songs...)
		default:
			if albumName, ok := sharedAlbum(songs); ok {
				scan.albums = append(scan.albums, albumFromSongs(albumName, songs))
			} else {
				p := models.NewPlaylist(name)
				for _, s := range songs {
					p.AddSong(s)
				}
				scan.playlists = append(scan.playlists, p)
			}
		}
	}

	l.logger.Debug("scanned library", "root", l.root,
		"liked", len(scan.liked), "albums", len(scan.albums), "playlists", len(scan.playlists))
	l.scanned = scan
	return scan, nil
}

// sharedAlbum returns the album tag every song carries, if there is exactly one.
func sharedAlbum(songs []*models.Song) (string, bool) {
	name := songs[0].AlbumName
	if name == "" {
		return "", false
	}
	for _, s := range songs[1:] {
		if shared.Normalize(s.AlbumName) != shared.Normalize(name) {
			return "", false
		}
	}
	return name, true
}

func albumFromSongs(name string, songs []*models.Song) *models.Album {
	album := &models.Album{Name: name}
	if main := songs[0].MainArtist(); main != "" {
		album.Artists = []models.Artist{{Name: main}}
	}
	for _, s := range songs {
		album.AddSong(s)
	}
	return album
}

// songFromFile builds a song from tags, falling back to an "artist - title" file name.
func songFromFile(tagger tags.Tagger, path string, logger *log.Logger) *models.Song {
	song := &models.Song{}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	song.IDs.Set(models.ProviderPath, path)

	f, err := tagger.Read(path)
	if err != nil {
		logger.Debug("reading tags failed", "path", path, "error", err)
	}

	song.Name = f.Title
	for _, a := range f.Artists {
		song.Artists = append(song.Artists, models.Artist{Name: a})
	}
	song.AlbumName = f.Album
	song.Duration = f.Duration
	if provider, id, ok := models.ParseCrossRef(f.CrossRef); ok {
		song.IDs.Set(provider, id)
	}

	if song.Name == "" {
		artists, title := splitFileName(path)
		song.Name = title
		if len(song.Artists) == 0 {
			for _, a := range artists {
				song.Artists = append(song.Artists, models.Artist{Name: a})
			}
		}
	}
	return song
}

// splitFileName reads "artist1, artist2 - title.ext", the shape [models.Song.Credit] writes.
// Without a separator the whole stem is the title.
func splitFileName(path string) (artists []string, title string) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	credit, title, ok := strings.Cut(stem, " - ")
	if !ok {
		return nil, stem
	}
	for _, a := range strings.Split(credit, ", ") {
		if a = strings.TrimSpace(a); a != "" {
			artists = append(artists, a)
		}
	}
	return artists, strings.TrimSpace(title)
}
