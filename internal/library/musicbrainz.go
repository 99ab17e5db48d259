package library

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
)

const (
	musicBrainzBaseURL  = "https://musicbrainz.org/ws/2"
	musicBrainzInterval = time.Second
	musicBrainzLimit    = 5
)

var (
	bracketed    = regexp.MustCompile(`\s*[\(\[][^\)\]]*[\)\]]`)
	luceneEscape = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
)

// MusicBrainz resolves against the MusicBrainz release database. It has no artist catalog lookup and
// retries not-found names once with bracketed suffixes such as "(Remastered 2011)" removed.
type MusicBrainz struct {
	baseURL string
	http    *requester
	pacer   *Pacer
}

// NewMusicBrainz creates a [MusicBrainz] backend. MusicBrainz asks every client to identify itself with a User-Agent.
func NewMusicBrainz(opts Options) (*MusicBrainz, error) {
	interval := musicBrainzInterval
	if opts.Interval > 0 {
		interval = opts.Interval
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = musicBrainzBaseURL
	}

	pacer := NewPacer(interval)
	return &MusicBrainz{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    newRequester(opts.HTTPClient, pacer, opts.UserAgent),
		pacer:   pacer,
	}, nil
}

func (b *MusicBrainz) Kind() Kind    { return KindMusicBrainz }
func (b *MusicBrainz) Pacer() *Pacer { return b.pacer }

// Normalize composes to NFC and collapses whitespace. Case is kept.
func (b *MusicBrainz) Normalize(q Query) Query {
	return q.Map(func(v string) string {
		return strings.Join(strings.Fields(norm.NFC.String(v)), " ")
	})
}

// Fallback strips bracketed suffixes from the name.
func (b *MusicBrainz) Fallback(q Query) (Query, bool) {
	name := q.Get(FieldName)
	stripped := strings.TrimSpace(bracketed.ReplaceAllString(name, ""))
	if stripped == "" || stripped == name {
		return q, false
	}
	return q.With(FieldName, stripped), true
}

type mbArtistCredit struct {
	Name       string `json:"name"`
	JoinPhrase string `json:"joinphrase"`
	Artist     struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artist"`
}

type mbRecording struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Length       int64            `json:"length"`
	Score        int              `json:"score"`
	ArtistCredit []mbArtistCredit `json:"artist-credit"`
	ISRCs        []string         `json:"isrcs"`
	Releases     []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"releases"`
}

type mbRelease struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Score        int              `json:"score"`
	ArtistCredit []mbArtistCredit `json:"artist-credit"`
	Media        []struct {
		Tracks []struct {
			Title     string       `json:"title"`
			Length    int64        `json:"length"`
			Recording *mbRecording `json:"recording"`
		} `json:"tracks"`
	} `json:"media"`
}

type mbArtist struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

func creditNames(credits []mbArtistCredit) []string {
	names := make([]string, 0, len(credits))
	for _, c := range credits {
		name := c.Artist.Name
		if name == "" {
			name = c.Name
		}
		names = append(names, name)
	}
	return names
}

func mainCredit(credits []mbArtistCredit) string {
	if len(credits) == 0 {
		return ""
	}
	return creditNames(credits)[0]
}

// search builds a Lucene query from field:phrase pairs, skipping blank values.
func search(pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf(`%s:"%s"`, pairs[i], luceneEscape.Replace(pairs[i+1])))
	}
	return strings.Join(parts, " AND ")
}

func (b *MusicBrainz) get(ctx context.Context, path string, params url.Values, result any) error {
	params.Set("fmt", "json")
	return b.http.getJSON(ctx, b.baseURL+path+"?"+params.Encode(), result)
}

// LookupSong searches recordings and keeps the best verified candidate.
func (b *MusicBrainz) LookupSong(ctx context.Context, q Query) (*models.Song, error) {
	params := url.Values{
		"query": {search("recording", q.Get(FieldName), "artist", q.Get(FieldArtist))},
		"limit": {fmt.Sprint(musicBrainzLimit)},
	}
	var resp struct {
		Recordings []mbRecording `json:"recordings"`
	}
	if err := b.get(ctx, "/recording", params, &resp); err != nil {
		return nil, err
	}

	i := best(q, len(resp.Recordings), func(i int) (string, string) {
		r := resp.Recordings[i]
		return r.Title, mainCredit(r.ArtistCredit)
	})
	if i < 0 {
		return nil, shared.ErrNotFound
	}
	return recordingToSong(resp.Recordings[i]), nil
}

func recordingToSong(r mbRecording) *models.Song {
	song := models.NewSong(r.Title, creditNames(r.ArtistCredit)...)
	song.Duration = time.Duration(r.Length) * time.Millisecond
	song.IDs.Set(models.ProviderMBID, r.ID)
	if len(r.ISRCs) > 0 {
		song.IDs.Set(models.ProviderISRC, r.ISRCs[0])
	}
	if len(r.Releases) > 0 {
		song.AlbumName = r.Releases[0].Title
	}
	return song
}

// LookupAlbum searches releases, then fetches the chosen release's tracklist. Both requests are paced.
func (b *MusicBrainz) LookupAlbum(ctx context.Context, q Query) (*models.Album, error) {
	params := url.Values{
		"query": {search("release", q.Get(FieldName), "artist", q.Get(FieldArtist))},
		"limit": {fmt.Sprint(musicBrainzLimit)},
	}
	var resp struct {
		Releases []mbRelease `json:"releases"`
	}
	if err := b.get(ctx, "/release", params, &resp); err != nil {
		return nil, err
	}

	i := best(q, len(resp.Releases), func(i int) (string, string) {
		r := resp.Releases[i]
		return r.Title, mainCredit(r.ArtistCredit)
	})
	if i < 0 {
		return nil, shared.ErrNotFound
	}

	var release mbRelease
	if err := b.get(ctx, "/release/"+url.PathEscape(resp.Releases[i].ID), url.Values{"inc": {"recordings+artist-credits"}}, &release); err != nil {
		return nil, err
	}

	album := models.NewAlbum(release.Title, creditNames(release.ArtistCredit)...)
	album.IDs.Set(models.ProviderMBID, release.ID)
	album.Cover = "https://coverartarchive.org/release/" + release.ID + "/front"
	for _, m := range release.Media {
		for _, t := range m.Tracks {
			var s *models.Song
			if t.Recording != nil {
				s = recordingToSong(*t.Recording)
				s.Name = t.Title
			} else {
				s = models.NewSong(t.Title, album.MainArtist())
			}
			if len(s.Artists) == 0 {
				s.Artists = append(s.Artists, album.Artists...)
			}
			if t.Length > 0 {
				s.Duration = time.Duration(t.Length) * time.Millisecond
			}
			s.AlbumName = album.Name
			album.AddSong(s)
		}
	}
	return album, nil
}

// LookupArtist searches artists by name.
func (b *MusicBrainz) LookupArtist(ctx context.Context, q Query) (*models.Artist, error) {
	params := url.Values{
		"query": {search("artist", q.Get(FieldName))},
		"limit": {fmt.Sprint(musicBrainzLimit)},
	}
	var resp struct {
		Artists []mbArtist `json:"artists"`
	}
	if err := b.get(ctx, "/artist", params, &resp); err != nil {
		return nil, err
	}

	i := best(q, len(resp.Artists), func(i int) (string, string) { return resp.Artists[i].Name, "" })
	if i < 0 {
		return nil, shared.ErrNotFound
	}

	artist := models.NewArtist(resp.Artists[i].Name)
	artist.IDs.Set(models.ProviderMBID, resp.Artists[i].ID)
	return artist, nil
}
