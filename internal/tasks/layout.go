package tasks

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/desertthunder/tunesync/internal/collection"
	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
)

// TargetKind is the kind of container being materialized.
type TargetKind int

const (
	TargetLiked TargetKind = iota
	TargetAlbum
	TargetPlaylist
)

func (k TargetKind) String() string {
	switch k {
	case TargetLiked:
		return "liked"
	case TargetAlbum:
		return "album"
	case TargetPlaylist:
		return "playlist"
	default:
		return ""
	}
}

// Target is the liked songs, one album or one playlist of a collection.
type Target struct {
	Kind     TargetKind
	Liked    *models.LikedSongs
	Album    *models.Album
	Playlist *models.Playlist
}

// LikedTarget targets the collection's liked songs.
func LikedTarget(coll *collection.Collection) Target {
	return Target{Kind: TargetLiked, Liked: coll.Liked}
}

// AlbumTarget targets a.
func AlbumTarget(a *models.Album) Target {
	return Target{Kind: TargetAlbum, Album: a}
}

// PlaylistTarget targets p.
func PlaylistTarget(p *models.Playlist) Target {
	return Target{Kind: TargetPlaylist, Playlist: p}
}

// ParseTarget looks up "liked", "album:<title>" or "playlist:<name>" in coll.
func ParseTarget(coll *collection.Collection, s string) (Target, error) {
	kind, name, _ := strings.Cut(s, ":")
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "liked":
		return LikedTarget(coll), nil
	case "album":
		if a := coll.AlbumByTitle(name); a != nil {
			return AlbumTarget(a), nil
		}
		return Target{}, fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, name)
	case "playlist":
		if p := coll.PlaylistByName(name); p != nil {
			return PlaylistTarget(p), nil
		}
		return Target{}, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, name)
	}
	return Target{}, fmt.Errorf("%w: target %q, want liked, album:<title> or playlist:<name>", shared.ErrInvalidArgument, s)
}

// Name is the display and directory name.
func (t Target) Name() string {
	switch t.Kind {
	case TargetAlbum:
		return t.Album.Title()
	case TargetPlaylist:
		return t.Playlist.Name
	default:
		return models.LikedSongsName
	}
}

// Songs returns every song of the target in order.
func (t Target) Songs() []*models.Song {
	switch t.Kind {
	case TargetAlbum:
		return t.Album.Songs
	case TargetPlaylist:
		return t.Playlist.Songs
	default:
		return t.Liked.Songs
	}
}

// Cover is the cover image URL, if any.
func (t Target) Cover() string {
	switch t.Kind {
	case TargetAlbum:
		return t.Album.Cover
	case TargetPlaylist:
		return t.Playlist.Cover
	default:
		return ""
	}
}

// Directory names under the library root.
const (
	AlbumsDir    = "Albums"
	PlaylistsDir = "Playlists"
)

// Layout maps targets and songs to paths under a library root.
//
// In the nested layout every target directory holds a copy of each of its songs. In the flattened
// layout each song lives once under its home: the album containing it, else the first playlist
// containing it, else the liked songs directory. Playlist manifests then sit directly in the playlists
// directory and reference songs wherever they live.
type Layout struct {
	Root    string
	Flatten bool
	Format  string
}

// LikedDir is <root>/Liked Songs.
func (l Layout) LikedDir() string {
	return filepath.Join(l.Root, models.LikedSongsName)
}

// AlbumDir is <root>/Albums/<artist - album>.
func (l Layout) AlbumDir(a *models.Album) string {
	return filepath.Join(l.Root, AlbumsDir, shared.SafeName(a.Title()))
}

// PlaylistDir is <root>/Playlists/<name>.
func (l Layout) PlaylistDir(p *models.Playlist) string {
	return filepath.Join(l.Root, PlaylistsDir, shared.SafeName(p.Name))
}

// Dir is the directory t's own files are written to.
func (l Layout) Dir(t Target) string {
	switch t.Kind {
	case TargetAlbum:
		return l.AlbumDir(t.Album)
	case TargetPlaylist:
		return l.PlaylistDir(t.Playlist)
	default:
		return l.LikedDir()
	}
}

// Manifest is the path of t's manifest when its files live in dir.
func (l Layout) Manifest(t Target, dir string) string {
	name := shared.SafeName(t.Name())
	switch {
	case t.Kind == TargetAlbum:
		return filepath.Join(dir, name+".nfo")
	case t.Kind == TargetPlaylist && l.Flatten:
		return filepath.Join(filepath.Dir(dir), name+".m3u")
	default:
		return filepath.Join(dir, name+".m3u")
	}
}

// Cover is the cover image path, next to the manifest and named after the target.
func (l Layout) Cover(t Target, dir string) string {
	manifest := l.Manifest(t, dir)
	return strings.TrimSuffix(manifest, filepath.Ext(manifest)) + ".jpg"
}

// FileStem is the file name of song without extension: "<artists> - <title>".
func (l Layout) FileStem(song *models.Song) string {
	return shared.SafeName(song.Credit())
}

// FileName is the file name of song in the configured format.
func (l Layout) FileName(song *models.Song) string {
	return l.FileStem(song) + "." + l.Format
}

// Home is the directory song lives in under the flattened layout. Only an album that lists the song can be
// its home, since materializing the album is what writes the file.
func (l Layout) Home(coll *collection.Collection, song *models.Song) string {
	if a := coll.ContainingAlbum(song); a != nil {
		return l.AlbumDir(a)
	}
	if p := coll.SongPlaylist(song); p != nil {
		return l.PlaylistDir(p)
	}
	return l.LikedDir()
}

// SongPath is where song of target t is stored when t's files live in dir.
func (l Layout) SongPath(coll *collection.Collection, t Target, dir string, song *models.Song) string {
	if l.Flatten && !owns(coll, t, song) {
		return filepath.Join(l.Home(coll, song), l.FileName(song))
	}
	return filepath.Join(dir, l.FileName(song))
}

// owns reports whether song's flattened home is t.
func owns(coll *collection.Collection, t Target, song *models.Song) bool {
	a := coll.ContainingAlbum(song)
	switch t.Kind {
	case TargetAlbum:
		return a != nil && a.Equal(t.Album)
	case TargetPlaylist:
		p := coll.SongPlaylist(song)
		return a == nil && p != nil && p.Equal(t.Playlist)
	default:
		return a == nil && coll.SongPlaylist(song) == nil
	}
}

// ownedSongs returns the songs Materialize downloads for t: all of them in the nested layout,
// only those homed at t in the flattened layout.
func (l Layout) ownedSongs(coll *collection.Collection, t Target) []*models.Song {
	if !l.Flatten {
		return t.Songs()
	}
	var songs []*models.Song
	for _, s := range t.Songs() {
		if owns(coll, t, s) {
			songs = append(songs, s)
		}
	}
	return songs
}
