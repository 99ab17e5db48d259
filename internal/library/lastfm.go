package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
)

const (
	lastFMBaseURL  = "https://ws.audioscrobbler.com/2.0/"
	lastFMInterval = 200 * time.Millisecond

	lastFMErrNotFound    = 6
	lastFMErrRateLimited = 29
)

// LastFM resolves against the Last.fm scrobble database. Keys are case-insensitive.
type LastFM struct {
	apiKey  string
	baseURL string
	http    *requester
	pacer   *Pacer
}

// NewLastFM creates a [LastFM] backend. An API key is required.
func NewLastFM(opts Options) (*LastFM, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: lastfm api_key", shared.ErrMissingCredentials)
	}

	interval := lastFMInterval
	if opts.Interval > 0 {
		interval = opts.Interval
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = lastFMBaseURL
	}

	pacer := NewPacer(interval)
	return &LastFM{
		apiKey:  opts.APIKey,
		baseURL: baseURL,
		http:    newRequester(opts.HTTPClient, pacer, opts.UserAgent),
		pacer:   pacer,
	}, nil
}

func (b *LastFM) Kind() Kind    { return KindLastFM }
func (b *LastFM) Pacer() *Pacer { return b.pacer }

// Normalize lower-cases and collapses whitespace in every field.
func (b *LastFM) Normalize(q Query) Query {
	return q.Map(func(v string) string {
		return strings.Join(strings.Fields(strings.ToLower(v)), " ")
	})
}

type lastFMImage struct {
	URL  string `json:"#text"`
	Size string `json:"size"`
}

type lastFMArtist struct {
	Name  string        `json:"name"`
	MBID  string        `json:"mbid"`
	URL   string        `json:"url"`
	Image []lastFMImage `json:"image"`
}

// lastFMNumber decodes numbers Last.fm sends as strings, numbers or null.
type lastFMNumber int64

func (n *lastFMNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	*n = lastFMNumber(v)
	return nil
}

// lastFMList decodes a field that is an array, or a bare object when it holds one element.
type lastFMList[T any] []T

func (l *lastFMList[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	*l = []T{item}
	return nil
}

type lastFMTrackInfo struct {
	Track *struct {
		Name     string       `json:"name"`
		MBID     string       `json:"mbid"`
		URL      string       `json:"url"`
		Duration lastFMNumber `json:"duration"`
		Artist   lastFMArtist `json:"artist"`
		Album    *struct {
			Title  string        `json:"title"`
			Artist string        `json:"artist"`
			MBID   string        `json:"mbid"`
			Image  []lastFMImage `json:"image"`
		} `json:"album"`
	} `json:"track"`
}

type lastFMAlbumTrack struct {
	Name     string       `json:"name"`
	URL      string       `json:"url"`
	Duration lastFMNumber `json:"duration"`
	Artist   lastFMArtist `json:"artist"`
}

type lastFMAlbum struct {
	Name   string          `json:"name"`
	Artist json.RawMessage `json:"artist"`
	MBID   string          `json:"mbid"`
	URL    string          `json:"url"`
	Image  []lastFMImage   `json:"image"`
	Tracks *struct {
		Track lastFMList[lastFMAlbumTrack] `json:"track"`
	} `json:"tracks"`
}

// artistName handles album.getInfo's string artist and getTopAlbums' object artist.
func (a lastFMAlbum) artistName() string {
	var name string
	if err := json.Unmarshal(a.Artist, &name); err == nil {
		return name
	}
	var obj lastFMArtist
	if err := json.Unmarshal(a.Artist, &obj); err == nil {
		return obj.Name
	}
	return ""
}

type lastFMEnvelope struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// call sends one API method. Last.fm reports most failures as an error code in a 200 body.
func (b *LastFM) call(ctx context.Context, method string, params url.Values, result any) error {
	params.Set("method", method)
	params.Set("api_key", b.apiKey)
	params.Set("format", "json")
	params.Set("autocorrect", "1")

	var raw json.RawMessage
	if err := b.http.getJSON(ctx, b.baseURL+"?"+params.Encode(), &raw); err != nil {
		return err
	}

	var env lastFMEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != 0 {
		switch env.Error {
		case lastFMErrNotFound:
			return shared.ErrNotFound
		case lastFMErrRateLimited:
			return fmt.Errorf("%w: %s", shared.ErrRateLimited, env.Message)
		default:
			return fmt.Errorf("%w: lastfm error %d: %s", shared.ErrAPIRequest, env.Error, env.Message)
		}
	}

	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// LookupSong calls track.getInfo.
func (b *LastFM) LookupSong(ctx context.Context, q Query) (*models.Song, error) {
	params := url.Values{"track": {q.Get(FieldName)}, "artist": {q.Get(FieldArtist)}}
	var info lastFMTrackInfo
	if err := b.call(ctx, "track.getInfo", params, &info); err != nil {
		return nil, err
	}
	t := info.Track
	if t == nil || candidateScore(q, t.Name, t.Artist.Name) < MatchThreshold {
		return nil, shared.ErrNotFound
	}

	song := models.NewSong(t.Name, t.Artist.Name)
	song.Duration = time.Duration(t.Duration) * time.Millisecond
	song.IDs.Set(models.ProviderLastFM, t.URL)
	song.IDs.Set(models.ProviderMBID, t.MBID)
	if t.Album != nil {
		song.AlbumName = t.Album.Title
		song.Cover = largestImage(t.Album.Image)
	}
	return song, nil
}

// LookupAlbum calls album.getInfo.
func (b *LastFM) LookupAlbum(ctx context.Context, q Query) (*models.Album, error) {
	params := url.Values{"album": {q.Get(FieldName)}, "artist": {q.Get(FieldArtist)}}
	var info struct {
		Album *lastFMAlbum `json:"album"`
	}
	if err := b.call(ctx, "album.getInfo", params, &info); err != nil {
		return nil, err
	}
	if info.Album == nil || candidateScore(q, info.Album.Name, info.Album.artistName()) < MatchThreshold {
		return nil, shared.ErrNotFound
	}
	return info.Album.toModel(), nil
}

// LookupArtist calls artist.getInfo.
func (b *LastFM) LookupArtist(ctx context.Context, q Query) (*models.Artist, error) {
	params := url.Values{"artist": {q.Get(FieldName)}}
	var info struct {
		Artist *lastFMArtist `json:"artist"`
	}
	if err := b.call(ctx, "artist.getInfo", params, &info); err != nil {
		return nil, err
	}
	if info.Artist == nil || Similarity(q.Get(FieldName), info.Artist.Name) < MatchThreshold {
		return nil, shared.ErrNotFound
	}

	artist := models.NewArtist(info.Artist.Name)
	artist.Cover = largestImage(info.Artist.Image)
	artist.IDs.Set(models.ProviderLastFM, info.Artist.URL)
	artist.IDs.Set(models.ProviderMBID, info.Artist.MBID)
	return artist, nil
}

// LookupArtistCatalog calls artist.getTopAlbums.
func (b *LastFM) LookupArtistCatalog(ctx context.Context, q Query) ([]*models.Album, error) {
	params := url.Values{"artist": {q.Get(FieldArtist)}}
	var info struct {
		TopAlbums *struct {
			Album lastFMList[lastFMAlbum] `json:"album"`
		} `json:"topalbums"`
	}
	if err := b.call(ctx, "artist.getTopAlbums", params, &info); err != nil {
		return nil, err
	}
	if info.TopAlbums == nil || len(info.TopAlbums.Album) == 0 {
		return nil, shared.ErrNotFound
	}

	albums := make([]*models.Album, 0, len(info.TopAlbums.Album))
	for _, a := range info.TopAlbums.Album {
		if a.Name == "" || a.Name == "(null)" {
			continue
		}
		albums = append(albums, a.toModel())
	}
	return albums, nil
}

func (a lastFMAlbum) toModel() *models.Album {
	album := models.NewAlbum(a.Name, a.artistName())
	album.Cover = largestImage(a.Image)
	album.IDs.Set(models.ProviderLastFM, a.URL)
	album.IDs.Set(models.ProviderMBID, a.MBID)
	if a.Tracks != nil {
		for _, t := range a.Tracks.Track {
			s := models.NewSong(t.Name, t.Artist.Name)
			s.Duration = time.Duration(t.Duration) * time.Second
			s.IDs.Set(models.ProviderLastFM, t.URL)
			album.AddSong(s)
		}
	}
	return album
}

// largestImage returns the last non-empty image URL; Last.fm lists sizes smallest first.
func largestImage(images []lastFMImage) string {
	for i := len(images) - 1; i >= 0; i-- {
		if images[i].URL != "" {
			return images[i].URL
		}
	}
	return ""
}
