// Spotify Web API [Importer] implementation
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	spotifyPageSize = 50
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Product     string `json:"product"` // premium, free, etc.
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyTrack represents a Spotify track. Album is absent on simplified tracks.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       *SpotifyAlbum   `json:"album,omitempty"`
	DurationMS  int             `json:"duration_ms"`
	ExternalIDs externalIDs     `json:"external_ids"`
	URI         string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
	URI         string          `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       Owner          `json:"owner"`
	Public      bool           `json:"public"`
	Images      []SpotifyImage `json:"images"`
	URI         string         `json:"uri"`
}

// SpotifyPaging is the envelope of every paginated Spotify listing.
type SpotifyPaging[T any] struct {
	Items  []T     `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Next   *string `json:"next"`
}

// SpotifySavedTrack represents a track saved in the user's library or listed in a playlist.
type SpotifySavedTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifySavedAlbum represents an album saved in the user's library.
type SpotifySavedAlbum struct {
	AddedAt string       `json:"added_at"`
	Album   SpotifyAlbum `json:"album"`
}

// SpotifyService implements [OAuthService] and [TrackLister] for the Spotify Web API.
// Uses [oauth2] for authentication; the client refreshes expired tokens.
type SpotifyService struct {
	config         *oauth2.Config
	token          *oauth2.Token
	httpClient     *http.Client
	baseURL        string
	onTokenRefresh func(*oauth2.Token)
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(creds shared.SpotifyConfig) (*SpotifyService, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("%w: missing spotify client_id", shared.ErrMissingCredentials)
	}
	if creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing spotify client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := creds.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"playlist-read-private",
			"playlist-read-collaborative",
			"user-library-read",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
	}, nil
}

// Name returns the provider key.
func (s *SpotifyService) Name() string {
	return string(KindSpotify)
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an "access_token" or "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		s.SetToken(ctx, &oauth2.Token{AccessToken: accessToken})
		return nil
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		_, err := s.Exchange(ctx, authCode)
		return err
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token and installs it.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %w", shared.ErrAuthFailed, err)
	}
	s.SetToken(ctx, token)
	return token, nil
}

// SetToken installs a token, e.g. one persisted by a previous run.
func (s *SpotifyService) SetToken(ctx context.Context, token *oauth2.Token) {
	s.token = token
	source := &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, token),
		callback: s.refreshed,
		last:     token.AccessToken,
	}
	s.httpClient = oauth2.NewClient(ctx, source)
}

// SetTokenRefreshCallback registers fn to receive every token the client refreshes, e.g. to persist it.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

func (s *SpotifyService) refreshed(token *oauth2.Token) {
	s.token = token
	if s.onTokenRefresh != nil {
		s.onTokenRefresh(token)
	}
}

// refreshableTokenSource reports tokens whose access token differs from the last one seen.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}
	return token, nil
}

// Token returns the installed token, or nil.
func (s *SpotifyService) Token() *oauth2.Token {
	return s.token
}

// doRequest performs an authenticated GET against the Spotify API and decodes the JSON body into result.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: spotify returned 401", shared.ErrNotAuthenticated)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrNotFound, endpoint)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: retry after %s", shared.ErrRateLimited, resp.Header.Get("Retry-After"))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: spotify API error: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// parseOffset reads an offset cursor. "" is the first page.
func parseOffset(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	offset, err := strconv.Atoi(cursor)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("%w: bad cursor %q", shared.ErrInvalidArgument, cursor)
	}
	return offset, nil
}

func nextOffset[T any](p *SpotifyPaging[T], offset int) string {
	if p.Next == nil || len(p.Items) == 0 {
		return ""
	}
	return strconv.Itoa(offset + len(p.Items))
}

func getPage[T any](ctx context.Context, s *SpotifyService, path, cursor string) (*SpotifyPaging[T], int, error) {
	offset, err := parseOffset(cursor)
	if err != nil {
		return nil, 0, err
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(spotifyPageSize))
	q.Set("offset", strconv.Itoa(offset))

	var page SpotifyPaging[T]
	if err := s.doRequest(ctx, path+"?"+q.Encode(), &page); err != nil {
		return nil, 0, err
	}
	return &page, offset, nil
}

// LikedSongs lists saved tracks via GET /me/tracks.
func (s *SpotifyService) LikedSongs(ctx context.Context, cursor string) (*Page, error) {
	page, offset, err := getPage[SpotifySavedTrack](ctx, s, "/me/tracks", cursor)
	if err != nil {
		return nil, err
	}
	return &Page{Songs: savedTracksToSongs(page.Items), Next: nextOffset(page, offset)}, nil
}

// Albums lists saved albums via GET /me/albums. Tracks come from [SpotifyService.AlbumSongs].
func (s *SpotifyService) Albums(ctx context.Context, cursor string) (*Page, error) {
	page, offset, err := getPage[SpotifySavedAlbum](ctx, s, "/me/albums", cursor)
	if err != nil {
		return nil, err
	}

	albums := make([]*models.Album, 0, len(page.Items))
	for _, item := range page.Items {
		albums = append(albums, item.Album.toAlbum())
	}
	return &Page{Albums: albums, Next: nextOffset(page, offset)}, nil
}

// Playlists lists the user's playlists via GET /me/playlists. Tracks come from [SpotifyService.PlaylistSongs].
func (s *SpotifyService) Playlists(ctx context.Context, cursor string) (*Page, error) {
	page, offset, err := getPage[SpotifySimplePlaylist](ctx, s, "/me/playlists", cursor)
	if err != nil {
		return nil, err
	}

	playlists := make([]*models.Playlist, 0, len(page.Items))
	for _, sp := range page.Items {
		p := models.NewPlaylist(sp.Name)
		p.Description = sp.Description
		p.Cover = firstImage(sp.Images)
		p.IDs.Set(models.ProviderSpotify, sp.ID)
		playlists = append(playlists, p)
	}
	return &Page{Playlists: playlists, Next: nextOffset(page, offset)}, nil
}

// AlbumSongs lists an album's tracks via GET /albums/{id}/tracks.
func (s *SpotifyService) AlbumSongs(ctx context.Context, album *models.Album, cursor string) (*Page, error) {
	id := album.IDs.Get(models.ProviderSpotify)
	if id == "" {
		return &Page{}, nil
	}

	page, offset, err := getPage[SpotifyTrack](ctx, s, "/albums/"+url.PathEscape(id)+"/tracks", cursor)
	if err != nil {
		return nil, err
	}

	songs := make([]*models.Song, 0, len(page.Items))
	for _, t := range page.Items {
		songs = append(songs, t.toSong())
	}
	return &Page{Songs: songs, Next: nextOffset(page, offset)}, nil
}

// PlaylistSongs lists a playlist's tracks via GET /playlists/{id}/tracks.
func (s *SpotifyService) PlaylistSongs(ctx context.Context, playlist *models.Playlist, cursor string) (*Page, error) {
	id := playlist.IDs.Get(models.ProviderSpotify)
	if id == "" {
		return &Page{}, nil
	}

	page, offset, err := getPage[SpotifySavedTrack](ctx, s, "/playlists/"+url.PathEscape(id)+"/tracks", cursor)
	if err != nil {
		return nil, err
	}
	return &Page{Songs: savedTracksToSongs(page.Items), Next: nextOffset(page, offset)}, nil
}

// savedTracksToSongs skips items without a track, such as removed or local files.
func savedTracksToSongs(items []SpotifySavedTrack) []*models.Song {
	songs := make([]*models.Song, 0, len(items))
	for _, item := range items {
		if item.Track == nil || item.Track.Name == "" {
			continue
		}
		songs = append(songs, item.Track.toSong())
	}
	return songs
}

func (t SpotifyTrack) toSong() *models.Song {
	song := &models.Song{
		Name:     t.Name,
		Artists:  spotifyArtists(t.Artists),
		Duration: time.Duration(t.DurationMS) * time.Millisecond,
	}
	if t.Album != nil {
		song.AlbumName = t.Album.Name
		song.Cover = firstImage(t.Album.Images)
	}
	song.IDs.Set(models.ProviderSpotify, t.ID)
	song.IDs.Set(models.ProviderISRC, t.ExternalIDs.ISRC)
	return song
}

func (a SpotifyAlbum) toAlbum() *models.Album {
	album := &models.Album{
		Name:    a.Name,
		Artists: spotifyArtists(a.Artists),
		Cover:   firstImage(a.Images),
	}
	album.IDs.Set(models.ProviderSpotify, a.ID)
	return album
}

func spotifyArtists(in []SpotifyArtist) []models.Artist {
	artists := make([]models.Artist, 0, len(in))
	for _, a := range in {
		artist := models.Artist{Name: a.Name}
		artist.IDs.Set(models.ProviderSpotify, a.ID)
		artists = append(artists, artist)
	}
	return artists
}

// firstImage returns the first (largest) image URL.
func firstImage(images []SpotifyImage) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
