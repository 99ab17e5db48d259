// Package tags reads and writes the fixed set of fields tunesync keeps on audio files.
//
// mp3 files are written as ID3v2.4 (TIT2, TPE1, TALB, TLEN, TRCK and TXXX frames); FLAC files as Vorbis comments.
// Every format dhowden/tag understands can be read.
package tags

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"github.com/desertthunder/tunesync/internal/shared"
)

// Custom field names, used as TXXX descriptions and Vorbis comment keys.
const (
	CrossRefField = "TUNESYNC_ID"
	LikedField    = "TUNESYNC_LIKED"
)

// artistSeparator joins multiple artists in a single text field.
const artistSeparator = "; "

// Fields are the tags tunesync reads and writes.
type Fields struct {
	Title       string
	Artists     []string
	Album       string
	CrossRef    string
	Liked       bool
	TrackNumber int
	Duration    time.Duration
}

// Tagger reads and writes [Fields] on audio files.
type Tagger interface {
	Read(path string) (Fields, error)
	Write(path string, f Fields) error
}

// FileTagger is the [Tagger] for files on disk.
type FileTagger struct{}

// NewFileTagger creates a [FileTagger].
func NewFileTagger() *FileTagger {
	return &FileTagger{}
}

// Supported reports whether path has an extension FileTagger can write.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".flac":
		return true
	}
	return false
}

// Read returns the fields stored on path.
func (t *FileTagger) Read(path string) (Fields, error) {
	file, err := os.Open(path)
	if err != nil {
		return Fields{}, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	var f Fields
	m, err := tag.ReadFrom(file)
	if err != nil && err != tag.ErrNoTagsFound {
		return Fields{}, fmt.Errorf("failed to read tags from %s: %w", filepath.Base(path), err)
	}
	if m != nil {
		f.Title = m.Title()
		f.Artists = splitArtists(m.Artist())
		f.Album = m.Album()
		f.TrackNumber, _ = m.Track()
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		err = readID3Extras(path, &f)
	case ".flac":
		err = readFLACExtras(path, &f)
	}
	if err != nil {
		return Fields{}, err
	}
	return f, nil
}

// Write replaces the fields on path. Formats other than mp3 and FLAC yield [shared.ErrUnsupported].
func (t *FileTagger) Write(path string, f Fields) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return writeID3(path, f)
	case ".flac":
		return writeFLAC(path, f)
	default:
		return fmt.Errorf("%w: tagging %s", shared.ErrUnsupported, filepath.Ext(path))
	}
}

func splitArtists(s string) []string {
	if s == "" {
		return nil
	}
	var artists []string
	for _, a := range strings.Split(s, artistSeparator) {
		if a = strings.TrimSpace(a); a != "" {
			artists = append(artists, a)
		}
	}
	return artists
}

func joinArtists(artists []string) string {
	return strings.Join(artists, artistSeparator)
}

func likedValue(liked bool) string {
	if liked {
		return "1"
	}
	return "0"
}

func parseMillis(s string) time.Duration {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
