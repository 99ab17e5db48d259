package collection

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
)

// Verifier canonicalizes a song against a metadata backend and reports whether it matched.
type Verifier interface {
	Verify(ctx context.Context, song *models.Song) (bool, error)
}

// Collection is the authoritative desired state. It is not safe for concurrent mutation.
type Collection struct {
	Liked     *models.LikedSongs
	albums    []*models.Album
	playlists []*models.Playlist

	verifier        Verifier
	requireVerified bool
	logger          *log.Logger
}

// New creates an empty [Collection].
func New() *Collection {
	return &Collection{Liked: models.NewLikedSongs(), logger: shared.DiscardLogger()}
}

// SetLogger replaces the logger.
func (c *Collection) SetLogger(l *log.Logger) {
	if l != nil {
		c.logger = l
	}
}

// SetVerifier installs v for [Collection.Verify]. With requireVerified, songs that fail verification are dropped on import.
func (c *Collection) SetVerifier(v Verifier, requireVerified bool) {
	c.verifier = v
	c.requireVerified = requireVerified
}

// Albums returns the albums in insertion order.
func (c *Collection) Albums() []*models.Album {
	return c.albums
}

// Playlists returns the playlists in insertion order.
func (c *Collection) Playlists() []*models.Playlist {
	return c.playlists
}

// AddSong merges song into the liked songs and returns the stored instance.
func (c *Collection) AddSong(song *models.Song) *models.Song {
	return c.Liked.AddSong(song)
}

// AddAlbum merges album into an equal existing album, or appends it. It returns the stored instance.
func (c *Collection) AddAlbum(album *models.Album) *models.Album {
	if existing := c.FindAlbum(album); existing != nil {
		existing.Merge(album)
		return existing
	}
	c.albums = append(c.albums, album)
	return album
}

// AddPlaylist merges playlist into an equal existing playlist, or appends it. It returns the stored instance.
func (c *Collection) AddPlaylist(playlist *models.Playlist) *models.Playlist {
	if existing := c.FindPlaylist(playlist); existing != nil {
		existing.Merge(playlist)
		return existing
	}
	c.playlists = append(c.playlists, playlist)
	return playlist
}

// RemoveSong drops song from the liked songs.
func (c *Collection) RemoveSong(song *models.Song) bool {
	return c.Liked.RemoveSong(song)
}

// RemoveAlbum drops the album equal to album.
func (c *Collection) RemoveAlbum(album *models.Album) bool {
	for i, a := range c.albums {
		if a == album || a.Equal(album) {
			c.albums = append(c.albums[:i], c.albums[i+1:]...)
			return true
		}
	}
	return false
}

// RemovePlaylist drops the playlist equal to playlist.
func (c *Collection) RemovePlaylist(playlist *models.Playlist) bool {
	for i, p := range c.playlists {
		if p == playlist || p.Equal(playlist) {
			c.playlists = append(c.playlists[:i], c.playlists[i+1:]...)
			return true
		}
	}
	return false
}

// FindAlbum returns the stored album equal to album, or nil.
func (c *Collection) FindAlbum(album *models.Album) *models.Album {
	for _, a := range c.albums {
		if a == album || a.Equal(album) {
			return a
		}
	}
	return nil
}

// FindPlaylist returns the stored playlist equal to playlist, or nil.
func (c *Collection) FindPlaylist(playlist *models.Playlist) *models.Playlist {
	for _, p := range c.playlists {
		if p == playlist || p.Equal(playlist) {
			return p
		}
	}
	return nil
}

// AlbumByTitle finds an album by its "artist - name" title or bare name, after normalization.
func (c *Collection) AlbumByTitle(title string) *models.Album {
	key := shared.Normalize(title)
	for _, a := range c.albums {
		if shared.Normalize(a.Title()) == key || shared.Normalize(a.Name) == key {
			return a
		}
	}
	return nil
}

// PlaylistByName finds a playlist by normalized name.
func (c *Collection) PlaylistByName(name string) *models.Playlist {
	return c.FindPlaylist(models.NewPlaylist(name))
}

// StandaloneLikedSongs returns the liked songs that belong to no album or playlist, in liked order.
func (c *Collection) StandaloneLikedSongs() []*models.Song {
	var songs []*models.Song
	for _, s := range c.Liked.Songs {
		if c.SongAlbum(s) == nil && len(c.SongPlaylists(s)) == 0 {
			songs = append(songs, s)
		}
	}
	return songs
}

// SongAlbum returns the album song belongs to. The album named by the song's album name wins, even when it
// does not list the song, as long as the main artists agree where both are known. Without a named match the
// result is [Collection.ContainingAlbum].
func (c *Collection) SongAlbum(song *models.Song) *models.Album {
	if song.AlbumName != "" {
		for _, a := range c.albums {
			if a.HasName(song.AlbumName) && sameArtist(a.MainArtist(), song.MainArtist()) {
				return a
			}
		}
	}
	return c.ContainingAlbum(song)
}

func sameArtist(a, b string) bool {
	return a == "" || b == "" || shared.Normalize(a) == shared.Normalize(b)
}

// ContainingAlbum returns the album listing song, preferring one named by the song's album name over the first
// in insertion order. Albums that do not list the song are never returned.
func (c *Collection) ContainingAlbum(song *models.Song) *models.Album {
	var contained *models.Album
	for _, a := range c.albums {
		if !a.Contains(song) {
			continue
		}
		if a.HasName(song.AlbumName) {
			return a
		}
		if contained == nil {
			contained = a
		}
	}
	return contained
}

// SongPlaylists returns every playlist containing song, in insertion order.
func (c *Collection) SongPlaylists(song *models.Song) []*models.Playlist {
	var playlists []*models.Playlist
	for _, p := range c.playlists {
		if p.Contains(song) {
			playlists = append(playlists, p)
		}
	}
	return playlists
}

// SongPlaylist returns the first playlist containing song, or nil.
func (c *Collection) SongPlaylist(song *models.Song) *models.Playlist {
	if ps := c.SongPlaylists(song); len(ps) > 0 {
		return ps[0]
	}
	return nil
}

// IsLiked reports whether song is among the liked songs.
func (c *Collection) IsLiked(song *models.Song) bool {
	return c.Liked.Contains(song)
}

// Stats are aggregate counts and durations.
type Stats struct {
	LikedSongs       int
	StandaloneSongs  int
	Albums           int
	AlbumSongs       int
	Playlists        int
	PlaylistSongs    int
	LikedDuration    time.Duration
	AlbumDuration    time.Duration
	PlaylistDuration time.Duration
}

// Stats computes aggregate counts and durations.
func (c *Collection) Stats() Stats {
	st := Stats{
		LikedSongs:      c.Liked.Len(),
		StandaloneSongs: len(c.StandaloneLikedSongs()),
		Albums:          len(c.albums),
		Playlists:       len(c.playlists),
		LikedDuration:   c.Liked.Duration(),
	}
	for _, a := range c.albums {
		st.AlbumSongs += a.Len()
		st.AlbumDuration += a.Duration()
	}
	for _, p := range c.playlists {
		st.PlaylistSongs += p.Len()
		st.PlaylistDuration += p.Duration()
	}
	return st
}

// Verify runs the installed verifier over songs and returns those to keep. Without a verifier every song is kept.
// With requireVerified set, songs that fail verification are dropped. Only cancellation is returned as an error.
func (c *Collection) Verify(ctx context.Context, songs []*models.Song) ([]*models.Song, error) {
	if c.verifier == nil {
		return songs, nil
	}

	kept := songs[:0:0]
	for _, s := range songs {
		ok, err := c.verifier.Verify(ctx, s)
		if err != nil {
			return kept, err
		}
		if !ok && c.requireVerified {
			c.logger.Info("dropping unverified song", "song", s.Credit())
			continue
		}
		kept = append(kept, s)
	}
	return kept, nil
}
