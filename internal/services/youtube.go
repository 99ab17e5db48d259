// YouTube Music [Importer] implementation
//
// Communicates with the FastAPI proxy server wrapping the ytmusicapi Python library.
// The proxy returns whole listings, so every page is final.
package services

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
)

// YouTubeImage represents an image/thumbnail from YouTube Music.
type YouTubeImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type youtubeAlbum struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a track/video in YouTube Music responses.
type YouTubeTrack struct {
	VideoID     string          `json:"videoId"`
	Title       string          `json:"title"`
	Artists     []YouTubeArtist `json:"artists"`
	Album       *youtubeAlbum   `json:"album"`
	DurationSec int             `json:"duration_seconds"`
	Thumbnails  []YouTubeImage  `json:"thumbnails"`
	ISRC        string          `json:"isrc,omitempty"`
}

// YouTubeLibraryAlbum is an entry of GET /api/library/albums.
type YouTubeLibraryAlbum struct {
	BrowseID   string          `json:"browseId"`
	Title      string          `json:"title"`
	Artists    []YouTubeArtist `json:"artists"`
	Thumbnails []YouTubeImage  `json:"thumbnails"`
}

// YouTubeLibraryPlaylist is an entry of GET /api/library/playlists.
type YouTubeLibraryPlaylist struct {
	PlaylistID  string         `json:"playlistId"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Count       int            `json:"count"`
	Thumbnails  []YouTubeImage `json:"thumbnails"`
}

type youtubeTracks struct {
	Tracks []YouTubeTrack `json:"tracks"`
}

// YouTubeService implements [Importer] and [TrackLister] for YouTube Music via the proxy.
type YouTubeService struct {
	api *APIService
}

// NewYouTubeService creates a new YouTube Music service on top of a proxy client.
func NewYouTubeService(api *APIService) *YouTubeService {
	if api == nil {
		api = NewAPIService("", nil)
	}
	return &YouTubeService{api: api}
}

// Name returns the provider key.
func (y *YouTubeService) Name() string {
	return string(KindYouTube)
}

// Authenticate stores the authentication file path for subsequent requests.
//
// Expects credentials["auth_file"] to contain the path to browser.json or oauth.json.
func (y *YouTubeService) Authenticate(ctx context.Context, credentials map[string]string) error {
	authFile, ok := credentials["auth_file"]
	if !ok || authFile == "" {
		return fmt.Errorf("%w: missing auth_file", shared.ErrMissingCredentials)
	}

	y.api.SetAuthFile(authFile)
	return nil
}

// LikedSongs calls GET /api/library/liked-songs.
func (y *YouTubeService) LikedSongs(ctx context.Context, _ string) (*Page, error) {
	var resp youtubeTracks
	if err := y.api.GetJSON(ctx, "/api/library/liked-songs", &resp); err != nil {
		return nil, err
	}
	return &Page{Songs: youtubeSongs(resp.Tracks)}, nil
}

// Albums calls GET /api/library/albums.
func (y *YouTubeService) Albums(ctx context.Context, _ string) (*Page, error) {
	var resp []YouTubeLibraryAlbum
	if err := y.api.GetJSON(ctx, "/api/library/albums", &resp); err != nil {
		return nil, err
	}

	albums := make([]*models.Album, 0, len(resp))
	for _, ya := range resp {
		album := &models.Album{Name: ya.Title, Artists: youtubeArtists(ya.Artists), Cover: lastThumbnail(ya.Thumbnails)}
		album.IDs.Set(models.ProviderYouTube, ya.BrowseID)
		albums = append(albums, album)
	}
	return &Page{Albums: albums}, nil
}

// Playlists calls GET /api/library/playlists.
func (y *YouTubeService) Playlists(ctx context.Context, _ string) (*Page, error) {
	var resp []YouTubeLibraryPlaylist
	if err := y.api.GetJSON(ctx, "/api/library/playlists", &resp); err != nil {
		return nil, err
	}

	playlists := make([]*models.Playlist, 0, len(resp))
	for _, yp := range resp {
		p := models.NewPlaylist(yp.Title)
		p.Description = yp.Description
		p.Cover = lastThumbnail(yp.Thumbnails)
		p.IDs.Set(models.ProviderYouTube, yp.PlaylistID)
		playlists = append(playlists, p)
	}
	return &Page{Playlists: playlists}, nil
}

// AlbumSongs calls GET /api/albums/{browseId}.
func (y *YouTubeService) AlbumSongs(ctx context.Context, album *models.Album, _ string) (*Page, error) {
	id := album.IDs.Get(models.ProviderYouTube)
	if id == "" {
		return &Page{}, nil
	}

	var resp youtubeTracks
	if err := y.api.GetJSON(ctx, "/api/albums/"+url.PathEscape(id), &resp); err != nil {
		return nil, err
	}
	return &Page{Songs: youtubeSongs(resp.Tracks)}, nil
}

// PlaylistSongs calls GET /api/playlists/{id}.
func (y *YouTubeService) PlaylistSongs(ctx context.Context, playlist *models.Playlist, _ string) (*Page, error) {
	id := playlist.IDs.Get(models.ProviderYouTube)
	if id == "" {
		return &Page{}, nil
	}

	var resp youtubeTracks
	if err := y.api.GetJSON(ctx, "/api/playlists/"+url.PathEscape(id), &resp); err != nil {
		return nil, err
	}
	return &Page{Songs: youtubeSongs(resp.Tracks)}, nil
}

func youtubeSongs(tracks []YouTubeTrack) []*models.Song {
	songs := make([]*models.Song, 0, len(tracks))
	for _, t := range tracks {
		if t.Title == "" {
			continue
		}
		song := &models.Song{
			Name:     t.Title,
			Artists:  youtubeArtists(t.Artists),
			Duration: time.Duration(t.DurationSec) * time.Second,
			Cover:    lastThumbnail(t.Thumbnails),
		}
		if t.Album != nil {
			song.AlbumName = t.Album.Name
		}
		song.IDs.Set(models.ProviderYouTube, t.VideoID)
		song.IDs.Set(models.ProviderISRC, t.ISRC)
		songs = append(songs, song)
	}
	return songs
}

func youtubeArtists(in []YouTubeArtist) []models.Artist {
	artists := make([]models.Artist, 0, len(in))
	for _, a := range in {
		artist := models.Artist{Name: a.Name}
		artist.IDs.Set(models.ProviderYouTube, a.ID)
		artists = append(artists, artist)
	}
	return artists
}

// lastThumbnail returns the last (largest) thumbnail URL.
func lastThumbnail(images []YouTubeImage) string {
	if len(images) == 0 {
		return ""
	}
	return images[len(images)-1].URL
}
