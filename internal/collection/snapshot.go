package collection

import (
	"fmt"
	"path/filepath"

	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
)

// Snapshot file names under the data directory.
const (
	AlbumsFile    = "albums.json"
	PlaylistsFile = "playlists.json"
	LikedFile     = "liked.json"
)

// Save writes the three snapshot files to dir, each replaced whole. Order is preserved.
func (c *Collection) Save(dir string) error {
	albums := c.albums
	if albums == nil {
		albums = []*models.Album{}
	}
	playlists := c.playlists
	if playlists == nil {
		playlists = []*models.Playlist{}
	}

	files := []struct {
		name string
		v    any
	}{
		{AlbumsFile, albums},
		{PlaylistsFile, playlists},
		{LikedFile, c.Liked},
	}
	for _, f := range files {
		if err := shared.WriteJSONFile(filepath.Join(dir, f.name), f.v); err != nil {
			return fmt.Errorf("failed to save collection: %w", err)
		}
	}
	return nil
}

// Load reads the snapshot files in dir into a new [Collection]. Missing files yield empty parts.
func Load(dir string) (*Collection, error) {
	var (
		albums    []*models.Album
		playlists []*models.Playlist
		liked     models.LikedSongs
	)

	for name, v := range map[string]any{AlbumsFile: &albums, PlaylistsFile: &playlists, LikedFile: &liked} {
		if _, err := shared.ReadJSONFile(filepath.Join(dir, name), v); err != nil {
			return nil, fmt.Errorf("failed to load collection: %w", err)
		}
	}

	c := New()
	c.Liked = &liked
	for _, a := range albums {
		c.AddAlbum(a)
	}
	for _, p := range playlists {
		c.AddPlaylist(p)
	}
	return c, nil
}
